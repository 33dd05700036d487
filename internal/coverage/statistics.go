package coverage

import (
	"fmt"
	"math"
)

// BandStatistics are the running statistics of the valid samples of one band
type BandStatistics struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	// M2 is the sum of the squared deviations from the mean
	M2 float64 `json:"m2"`
}

// Add a sample (Welford)
func (s *BandStatistics) Add(v float64) {
	if s.Count == 0 {
		s.Min, s.Max = v, v
	} else {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Count++
	delta := v - s.Mean
	s.Mean += delta / float64(s.Count)
	s.M2 += delta * (v - s.Mean)
}

// Merge the statistics of another set of samples
func (s *BandStatistics) Merge(o BandStatistics) {
	if o.Count == 0 {
		return
	}
	if s.Count == 0 {
		*s = o
		return
	}
	n := s.Count + o.Count
	delta := o.Mean - s.Mean
	s.M2 += o.M2 + delta*delta*float64(s.Count)*float64(o.Count)/float64(n)
	s.Mean += delta * float64(o.Count) / float64(n)
	s.Min = math.Min(s.Min, o.Min)
	s.Max = math.Max(s.Max, o.Max)
	s.Count = n
}

// Variance of the population
func (s BandStatistics) Variance() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.M2 / float64(s.Count)
}

// StdDev of the population
func (s BandStatistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// Statistics of a coverage or a section
type Statistics struct {
	NoDataCount int64            `json:"nodata_count"`
	Bands       []BandStatistics `json:"bands"`
}

// NewStatistics creates empty statistics
func NewStatistics(bands int) *Statistics {
	return &Statistics{Bands: make([]BandStatistics, bands)}
}

// Merge the statistics of another section
func (s *Statistics) Merge(o *Statistics) error {
	if o == nil {
		return nil
	}
	if len(s.Bands) != len(o.Bands) {
		return fmt.Errorf("statistics: cannot merge %d bands with %d bands", len(s.Bands), len(o.Bands))
	}
	s.NoDataCount += o.NoDataCount
	for i := range s.Bands {
		s.Bands[i].Merge(o.Bands[i])
	}
	return nil
}
