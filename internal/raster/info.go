package raster

// BandInfo describes a band
type BandInfo struct {
	Band           int               `json:"band"`
	DataType       string            `json:"data_type"`
	BlockSize      [2]int            `json:"block_size"`
	ColorInterp    string            `json:"color_interp"`
	NoData         *float64          `json:"nodata,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	ImageStructure map[string]string `json:"image_structure,omitempty"`
}

// Info describes a dataset
type Info struct {
	Store          string            `json:"store"`
	Coverage       string            `json:"coverage,omitempty"`
	SectionID      int64             `json:"section_id"`
	Size           [2]int            `json:"size"`
	GeoTransform   [6]float64        `json:"geotransform"`
	Projection     string            `json:"projection,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	ImageStructure map[string]string `json:"image_structure,omitempty"`
	Bands          []BandInfo        `json:"bands,omitempty"`
	Overviews      [][2]int          `json:"overviews,omitempty"`
	Subdatasets    []Subdataset      `json:"subdatasets,omitempty"`
}

// Describe returns the description of the dataset (without reading any pixel)
func Describe(ds *Dataset) Info {
	info := Info{
		Metadata:    ds.Metadata(DomainDefault),
		Subdatasets: ds.Subdatasets(),
		SectionID:   ds.SectionID(),
		Store:       ds.Store(),
	}
	cov := ds.Coverage()
	if cov == nil {
		return info
	}
	info.Coverage = cov.Name
	w, h := ds.Size()
	info.Size = [2]int{w, h}
	info.GeoTransform = ds.GeoTransform()
	info.Projection = ds.Projection()
	info.ImageStructure = ds.Metadata(DomainImageStructure)
	for _, b := range ds.Bands() {
		bw, bh := b.BlockSize()
		bi := BandInfo{
			Band:           b.Index() + 1,
			DataType:       b.DataType().String(),
			BlockSize:      [2]int{bw, bh},
			ColorInterp:    b.ColorInterp().Name(),
			Metadata:       b.Metadata(DomainDefault),
			ImageStructure: b.Metadata(DomainImageStructure),
		}
		if nd, ok := b.NoData(); ok {
			bi.NoData = &nd
		}
		info.Bands = append(info.Bands, bi)
	}
	for i := 0; i < ds.OverviewCount(); i++ {
		ov, _ := ds.Overview(i)
		ow, oh := ov.Size()
		info.Overviews = append(info.Overviews, [2]int{ow, oh})
	}
	return info
}
