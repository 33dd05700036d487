package codec

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/gen2brain/webp"
)

func is16Bit(enc coverage.Encoding) bool {
	return enc.Sample == coverage.SampleUINT16
}

// toImage wraps the tile in an image.Image: gray for one band, RGB(A) for three or four bands
func toImage(enc coverage.Encoding, width, height int, data []byte) image.Image {
	rect := image.Rect(0, 0, width, height)
	if is16Bit(enc) {
		samples := make([]uint16, len(data)/2)
		for i := range samples {
			samples[i] = binary.NativeEndian.Uint16(data[2*i:])
		}
		if enc.Bands == 1 {
			img := image.NewGray16(rect)
			for i, v := range samples {
				binary.BigEndian.PutUint16(img.Pix[2*i:], v)
			}
			return img
		}
		img := image.NewNRGBA64(rect)
		for p := 0; p < width*height; p++ {
			c := color.NRGBA64{A: 0xffff}
			px := samples[p*enc.Bands : (p+1)*enc.Bands]
			c.R, c.G, c.B = px[0], px[1], px[2]
			if enc.Bands == 4 {
				c.A = px[3]
			}
			img.SetNRGBA64(p%width, p/width, c)
		}
		return img
	}
	if enc.Bands == 1 {
		return &image.Gray{Pix: data, Stride: width, Rect: rect}
	}
	if enc.Bands == 4 {
		return &image.NRGBA{Pix: data, Stride: 4 * width, Rect: rect}
	}
	img := image.NewNRGBA(rect)
	for p, q := 0, 0; p < len(data); p, q = p+3, q+4 {
		img.Pix[q], img.Pix[q+1], img.Pix[q+2], img.Pix[q+3] = data[p], data[p+1], data[p+2], 0xff
	}
	return img
}

// fromImage extracts the samples of the tile from a decoded image
func fromImage(enc coverage.Encoding, width, height int, img image.Image) []byte {
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return nil
	}
	data := make([]byte, width*height*enc.PixelSize())
	p := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)
			switch {
			case is16Bit(enc) && enc.Bands == 1:
				binary.NativeEndian.PutUint16(data[p:], color.Gray16Model.Convert(c).(color.Gray16).Y)
			case is16Bit(enc):
				n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
				for i, v := range []uint16{n.R, n.G, n.B, n.A}[:enc.Bands] {
					binary.NativeEndian.PutUint16(data[p+2*i:], v)
				}
			case enc.Bands == 1:
				data[p] = color.GrayModel.Convert(c).(color.Gray).Y
			default:
				n := color.NRGBAModel.Convert(c).(color.NRGBA)
				copy(data[p:p+enc.Bands], []byte{n.R, n.G, n.B, n.A}[:enc.Bands])
			}
			p += enc.PixelSize()
		}
	}
	return data
}

func encodePNG(enc coverage.Encoding, width, height int, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	e := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := e.Encode(&buf, toImage(enc, width, height, data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodePNG(enc coverage.Encoding, width, height int, blob []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	return fromImage(enc, width, height, img), nil
}

func encodeJPEG(quality int, enc coverage.Encoding, width, height int, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, toImage(enc, width, height, data), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeJPEG(enc coverage.Encoding, width, height int, blob []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	return fromImage(enc, width, height, img), nil
}

func encodeWEBP(lossless bool, quality int, enc coverage.Encoding, width, height int, data []byte) ([]byte, error) {
	img := toImage(enc, width, height, data)
	if gray, ok := img.(*image.Gray); ok {
		// webp has no gray model
		rgba := image.NewNRGBA(gray.Rect)
		for i, v := range gray.Pix {
			rgba.Pix[4*i], rgba.Pix[4*i+1], rgba.Pix[4*i+2], rgba.Pix[4*i+3] = v, v, v, 0xff
		}
		img = rgba
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Quality: quality, Lossless: lossless}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeWEBP(enc coverage.Encoding, width, height int, blob []byte) ([]byte, error) {
	img, err := webp.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	return fromImage(enc, width, height, img), nil
}
