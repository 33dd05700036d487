package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airbusgeo/coverstore/cmd"
	"github.com/airbusgeo/coverstore/interface/messaging"
	"github.com/airbusgeo/coverstore/internal/log"
	"github.com/airbusgeo/coverstore/internal/raster"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cmd.LoadEnv()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Logger(ctx).Fatal("run error", zap.Error(err))
	}
}

type serverConfig struct {
	AppPort             string
	Store               string
	TLSCert             string
	TLSKey              string
	BlockCacheSize      int
	BearerAuthSecret    string
	ShutdownGracePeriod time.Duration
	DBConfig            *cmd.DBConfig
	TileCacheConfig     *cmd.TileCacheConfig
	MessagingConfig     *cmd.MessagingConfig
}

func newServerAppConfig() (*serverConfig, error) {
	serverConfig := serverConfig{}
	flag.StringVar(&serverConfig.AppPort, "port", cmd.Getenv("PORT", "8080"), "port to use")
	flag.StringVar(&serverConfig.Store, "store", cmd.Getenv("STORE", "coverstore"), "name of the store in the connection strings and in the events")
	flag.StringVar(&serverConfig.TLSCert, "tlsCert", cmd.Getenv("TLS_CERT", ""), "certificate to enable TLS (with --tlsKey)")
	flag.StringVar(&serverConfig.TLSKey, "tlsKey", cmd.Getenv("TLS_KEY", ""), "private key to enable TLS (with --tlsCert)")
	flag.IntVar(&serverConfig.BlockCacheSize, "blockCache", cmd.GetenvInt("BLOCK_CACHE", 4096), "number of decoded blocks kept in memory")
	flag.StringVar(&serverConfig.BearerAuthSecret, "baSecret", cmd.Getenv("BEARER_AUTH", ""), `bearer tokens {"user": "...", "event": "..."} or reference to the secret storing them: gsm://<project>/<secret>`)
	flag.DurationVar(&serverConfig.ShutdownGracePeriod, "shutdownGracePeriod", 30*time.Second, "delay to terminate the pending requests")
	serverConfig.DBConfig = cmd.DBConfigFlags()
	serverConfig.TileCacheConfig = cmd.TileCacheConfigFlags()
	serverConfig.MessagingConfig = cmd.MessagingConfigFlags()

	flag.Parse()

	if serverConfig.AppPort == "" {
		return nil, fmt.Errorf("failed to initialize --port application flag")
	}
	if (serverConfig.TLSCert == "") != (serverConfig.TLSKey == "") {
		return nil, fmt.Errorf("--tlsCert and --tlsKey must be defined together")
	}
	return &serverConfig, nil
}

func run(ctx context.Context) error {
	serverConfig, err := newServerAppConfig()
	if err != nil {
		return err
	}

	// Connect to database
	pgdb, err := serverConfig.DBConfig.Connect(ctx)
	if err != nil {
		return err
	}
	db, closeCache, err := serverConfig.TileCacheConfig.Wrap(ctx, pgdb)
	if err != nil {
		return err
	}
	defer closeCache()

	// Messaging
	msg, err := serverConfig.MessagingConfig.Connect(ctx, true)
	if err != nil {
		return err
	}

	cache, err := raster.NewLRUBlockCache(serverConfig.BlockCacheSize)
	if err != nil {
		return fmt.Errorf("block cache: %w", err)
	}
	opts := raster.DefaultOpenOptions()
	opts.Cache = cache

	s := &server{
		db:          db,
		datasets:    newDatasets(db, serverConfig.Store, opts),
		bearerAuths: map[string]tokenAuth{},
	}
	if serverConfig.BearerAuthSecret != "" {
		if s.bearerAuths, err = loadBearerAuths(ctx, serverConfig.BearerAuthSecret); err != nil {
			return err
		}
	}
	if msg != nil {
		s.push = msg.PushConsumer
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", serverConfig.AppPort),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Logger(ctx).Info("http listen", zap.String("addr", srv.Addr))
		var err error
		if serverConfig.TLSCert != "" {
			err = srv.ListenAndServeTLS(serverConfig.TLSCert, serverConfig.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("srv.ListenAndServe: %w", err)
	})

	if msg != nil && msg.Consumer != nil {
		g.Go(func() error {
			pullEvents(ctx, msg.Consumer, messaging.EventCallback(s.datasets.HandleEvent))
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		if msg != nil {
			msg.Close()
		}
		sctx, cncl := context.WithTimeout(context.Background(), serverConfig.ShutdownGracePeriod)
		defer cncl()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// pullEvents consumes the events until ctx is done
func pullEvents(ctx context.Context, consumer messaging.Consumer, cb messaging.Callback) {
	for ctx.Err() == nil {
		if err := consumer.Pull(ctx, cb); err != nil && ctx.Err() == nil {
			log.Logger(ctx).Warn("eventConsumer.Pull", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}
