// Package codec compresses and decompresses the tiles of a coverage.
//
// A tile is a buffer of width*height pixel-interleaved samples, each sample being
// stored with the numeric type of its encoding (sub-byte samples are stored as bytes).
package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/metrics"
	"github.com/klauspost/compress/zlib"
	"github.com/ulikunitz/xz/lzma"
)

// Validate returns an UnsupportedEncoding error if the tiles of the encoding cannot be stored with the compression
func Validate(c coverage.Compression, enc coverage.Encoding) error {
	switch c {
	case coverage.CompressionNONE, coverage.CompressionDEFLATE, coverage.CompressionLZMA:
		return nil
	case coverage.CompressionPNG:
		switch enc.Sample {
		case coverage.Sample1BIT, coverage.Sample2BIT, coverage.Sample4BIT, coverage.SampleUINT8, coverage.SampleUINT16:
			if enc.Bands == 1 || enc.Bands == 3 || enc.Bands == 4 {
				return nil
			}
		}
	case coverage.CompressionJPEG, coverage.CompressionWEBP, coverage.CompressionWEBP_LOSSLESS:
		if enc.Sample == coverage.SampleUINT8 && (enc.Pixel == coverage.PixelGRAYSCALE || enc.Pixel == coverage.PixelRGB) {
			return nil
		}
	default:
		return coverage.NewUnsupportedEncoding("compression %s is not supported", c)
	}
	return coverage.NewUnsupportedEncoding("compression %s cannot store %s %s with %d band(s)", c, enc.Pixel, enc.Sample, enc.Bands)
}

// TileSize returns the size in bytes of an uncompressed tile
func TileSize(enc coverage.Encoding, width, height int) int {
	return width * height * enc.PixelSize()
}

// Encode compresses a tile
func Encode(c coverage.Compression, quality int, enc coverage.Encoding, width, height int, data []byte) ([]byte, error) {
	if err := Validate(c, enc); err != nil {
		return nil, err
	}
	if len(data) != TileSize(enc, width, height) {
		return nil, coverage.NewShapeMismatch(len(data), TileSize(enc, width, height))
	}
	switch c {
	case coverage.CompressionNONE:
		return append([]byte{}, data...), nil
	case coverage.CompressionDEFLATE:
		var buf bytes.Buffer
		w, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("codec.Encode: %w", err)
		}
		return finish(&buf, w, data)
	case coverage.CompressionLZMA:
		var buf bytes.Buffer
		w, err := lzma.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("codec.Encode: %w", err)
		}
		return finish(&buf, w, data)
	case coverage.CompressionPNG:
		return encodePNG(enc, width, height, data)
	case coverage.CompressionJPEG:
		return encodeJPEG(quality, enc, width, height, data)
	default:
		return encodeWEBP(c == coverage.CompressionWEBP_LOSSLESS, quality, enc, width, height, data)
	}
}

func finish(buf *bytes.Buffer, w io.WriteCloser, data []byte) ([]byte, error) {
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("codec.Encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec.Encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses a tile
func Decode(c coverage.Compression, enc coverage.Encoding, width, height int, blob []byte) ([]byte, error) {
	if err := Validate(c, enc); err != nil {
		return nil, err
	}
	metrics.ObserveTileDecoded(c.String())
	size := TileSize(enc, width, height)
	var data []byte
	var err error
	switch c {
	case coverage.CompressionNONE:
		data = append([]byte{}, blob...)
	case coverage.CompressionDEFLATE:
		var r io.ReadCloser
		if r, err = zlib.NewReader(bytes.NewReader(blob)); err == nil {
			data, err = readAll(r, size)
			r.Close()
		}
	case coverage.CompressionLZMA:
		var r *lzma.Reader
		if r, err = lzma.NewReader(bytes.NewReader(blob)); err == nil {
			data, err = readAll(r, size)
		}
	case coverage.CompressionPNG:
		data, err = decodePNG(enc, width, height, blob)
	case coverage.CompressionJPEG:
		data, err = decodeJPEG(enc, width, height, blob)
	default:
		data, err = decodeWEBP(enc, width, height, blob)
	}
	if err != nil {
		return nil, fmt.Errorf("codec.Decode[%s]: %w", c, err)
	}
	if len(data) != size {
		return nil, coverage.NewShapeMismatch(len(data), size)
	}
	return data, nil
}

func readAll(r io.Reader, size int) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
