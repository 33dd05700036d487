package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/airbusgeo/coverstore/cmd"
	"github.com/airbusgeo/coverstore/interface/storage/uri"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/image"
	"github.com/airbusgeo/coverstore/internal/ingest"
	"github.com/airbusgeo/coverstore/internal/raster"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/goccy/go-json"
	"github.com/urfave/cli"
)

// connString returns arg if it is a connection string, or the connection string of the coverage arg of the store
func connString(s *store, arg string) string {
	if strings.HasPrefix(strings.ToUpper(arg), coverage.Scheme+":") {
		return arg
	}
	return coverage.ConnString{File: s.name, Coverage: arg, SectionID: tiling.CoverageWide}.String()
}

func openOptions(c *cli.Context) (raster.OpenOptions, error) {
	kv, err := parseKeyValues(c.StringSlice("oo"))
	if err != nil {
		return raster.OpenOptions{}, err
	}
	return raster.ParseOpenOptions(kv)
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func cliList(ctx context.Context, c *cli.Context, s *store) error {
	covs, err := s.db.ListCoverages(ctx)
	if err != nil {
		return err
	}
	if len(covs) == 0 {
		fmt.Println("No coverage")
		return nil
	}
	for _, cov := range covs {
		sections, err := s.db.ListSections(ctx, cov.Name)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", cov.Name)
		if cov.Title != "" {
			fmt.Printf("  Title:       %s\n", cov.Title)
		}
		fmt.Printf("  Encoding:    %s %s x%d\n", cov.Encoding.Pixel, cov.Encoding.Sample, cov.Encoding.Bands)
		fmt.Printf("  Compression: %s (quality %d)\n", cov.Compression, cov.Quality)
		fmt.Printf("  Tiles:       %dx%d\n", cov.TileWidth, cov.TileHeight)
		fmt.Printf("  Resolution:  %g, %g (SRID %d)\n", cov.Res.X, cov.Res.Y, cov.SRID)
		fmt.Printf("  Sections:    %d\n", len(sections))
		fmt.Printf("  Open with:   %s\n", coverage.ConnString{File: s.name, Coverage: cov.Name, SectionID: tiling.CoverageWide})
	}
	return nil
}

func cliInfo(ctx context.Context, c *cli.Context, s *store) error {
	if c.NArg() != 1 {
		return cli.ShowCommandHelp(c, "info")
	}
	opts, err := openOptions(c)
	if err != nil {
		return err
	}
	ds, err := raster.Open(ctx, s.db, connString(s, c.Args().First()), opts)
	if err != nil {
		return err
	}
	return printJSON(raster.Describe(ds))
}

func cliIngest(ctx context.Context, c *cli.Context, s *store) error {
	if c.NArg() != 1 {
		return cli.ShowCommandHelp(c, "ingest")
	}
	file := c.Args().First()

	kv, err := parseKeyValues(c.StringSlice("co"))
	if err != nil {
		return err
	}
	opts := ingest.DefaultOptions()
	if opts.IngestOptions, err = coverage.ParseIngestOptions(kv); err != nil {
		return err
	}
	if opts.Coverage == "" {
		opts.Coverage = coverage.DefaultName(file)
	}
	if opts.Section == "" {
		opts.Section = coverage.DefaultName(file)
	}
	opts.SourcePath = file
	if opts.Storage, err = uri.NewStorageStrategy(ctx, file); err != nil {
		return err
	}

	msgConfig := cmd.MessagingConfig{
		Project:       c.GlobalString("project"),
		PgqConnection: c.GlobalString("pgqConnection"),
		EventsQueue:   c.GlobalString("eventsQueue"),
	}
	msg, err := msgConfig.Connect(ctx, false)
	if err != nil {
		return err
	}
	if msg != nil {
		defer msg.Close()
		opts.Publisher = msg.Publisher
	}

	src, err := image.OpenSource(file)
	if err != nil {
		return err
	}
	defer src.Close()
	if srs := c.String("srs"); srs != "" {
		if err := src.OverrideSRS(srs); err != nil {
			return err
		}
	}

	quiet := c.Bool("quiet")
	last := -1
	progress := func(complete float64) bool {
		if pct := int(complete * 10); !quiet && pct != last {
			last = pct
			fmt.Fprintf(os.Stderr, "%d%%...", pct*10)
			if pct == 10 {
				fmt.Fprintln(os.Stderr)
			}
		}
		return ctx.Err() == nil
	}

	ds, err := ingest.CreateCopy(ctx, s.db, s.name, src, opts, progress)
	if err != nil {
		return err
	}
	return printJSON(raster.Describe(ds))
}

func cliReadBlock(ctx context.Context, c *cli.Context, s *store) error {
	if c.NArg() != 1 {
		return cli.ShowCommandHelp(c, "read-block")
	}
	opts, err := openOptions(c)
	if err != nil {
		return err
	}
	ds, err := raster.Open(ctx, s.db, connString(s, c.Args().First()), opts)
	if err != nil {
		return err
	}
	if ds.Coverage() == nil {
		return fmt.Errorf("%s is a store with several coverages: select one of %v", s.name, ds.Subdatasets())
	}

	bands := ds.Bands()
	bandIdx := c.Int("band")
	if bandIdx < 1 || bandIdx > len(bands) {
		return fmt.Errorf("invalid band %d (the coverage has %d bands)", bandIdx, len(bands))
	}
	band := bands[bandIdx-1]
	if ov := c.Int("overview"); ov >= 0 {
		var ok bool
		if band, ok = band.Overview(ov); !ok {
			return fmt.Errorf("invalid overview %d (the coverage has %d overviews)", ov, ds.OverviewCount())
		}
	}

	bx, by := c.Int("x"), c.Int("y")
	nx, ny := band.BlockCount()
	if bx < 0 || by < 0 || bx >= nx || by >= ny {
		return fmt.Errorf("invalid block %d,%d (%dx%d blocks)", bx, by, nx, ny)
	}
	bw, bh := band.BlockSize()
	dst := make([]byte, bw*bh*band.DataType().Size())
	if err := band.ReadBlock(ctx, bx, by, dst); err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		if err := os.WriteFile(out, dst, 0o644); err != nil {
			return err
		}
	}
	fmt.Printf("block %d,%d of band %d: %dx%d %s (%d bytes)\n", bx, by, bandIdx, bw, bh, band.DataType(), len(dst))
	return nil
}
