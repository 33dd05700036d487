package coverage

import (
	"fmt"
	"image/color"
)

// Palette is the color table of a PALETTE coverage
type Palette struct {
	Entries []color.RGBA
}

// ColorTable returns the entries with an alpha of 0 for the nodata index, if any
func (p *Palette) ColorTable(nodata *Pixel) []color.RGBA {
	entries := make([]color.RGBA, len(p.Entries))
	copy(entries, p.Entries)
	if nodata != nil && len(nodata.Values) == 1 {
		if idx := int(nodata.Values[0]); idx >= 0 && idx < len(entries) {
			entries[idx].A = 0
		}
	}
	return entries
}

// MarshalBinary implements encoding.BinaryMarshaler (uint16 big-endian count followed by RGBA quadruplets)
func (p *Palette) MarshalBinary() ([]byte, error) {
	if len(p.Entries) > 256 {
		return nil, fmt.Errorf("palette: too many entries (%d)", len(p.Entries))
	}
	b := make([]byte, 2, 2+4*len(p.Entries))
	b[0], b[1] = byte(len(p.Entries)>>8), byte(len(p.Entries))
	for _, e := range p.Entries {
		b = append(b, e.R, e.G, e.B, e.A)
	}
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (p *Palette) UnmarshalBinary(b []byte) error {
	if len(b) < 2 {
		return fmt.Errorf("palette: invalid header")
	}
	n := int(b[0])<<8 | int(b[1])
	if len(b) != 2+4*n {
		return fmt.Errorf("palette: expected %d bytes, got %d", 2+4*n, len(b))
	}
	p.Entries = make([]color.RGBA, n)
	for i := range p.Entries {
		o := 2 + 4*i
		p.Entries[i] = color.RGBA{R: b[o], G: b[o+1], B: b[o+2], A: b[o+3]}
	}
	return nil
}
