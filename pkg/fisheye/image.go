package fisheye

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Pixel holds the channel intensities of one image cell.
type Pixel []uint8

// Image is an 8-bit interleaved raster. Three-channel images are stored in RGB order.
type Image struct {
	Width    int
	Height   int
	Channels int
	// Pix is row-major with Width*Channels bytes per row.
	Pix []uint8
}

// NewImage allocates a zeroed image.
func NewImage(width, height, channels int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%d", width, height)
	}
	if channels <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%d channels", channels)
	}
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}, nil
}

// NewUniformImage allocates an image with every pixel set to p.
func NewUniformImage(width, height int, p Pixel) (*Image, error) {
	img, err := NewImage(width, height, len(p))
	if err != nil {
		return nil, err
	}
	for off := 0; off < len(img.Pix); off += len(p) {
		copy(img.Pix[off:], p)
	}
	return img, nil
}

// CheckValid verifies the shape invariants of the image.
func (m *Image) CheckValid() error {
	if m == nil {
		return errors.Wrap(ErrInvalidDimensions, "image not provided")
	}
	if m.Width <= 0 || m.Height <= 0 {
		return errors.Wrapf(ErrInvalidDimensions, "%dx%d", m.Width, m.Height)
	}
	if m.Channels <= 0 {
		return errors.Wrapf(ErrInvalidDimensions, "%d channels", m.Channels)
	}
	if len(m.Pix) != m.Width*m.Height*m.Channels {
		return errors.Wrapf(ErrInvalidDimensions, "pixel buffer has %d bytes, expected %d",
			len(m.Pix), m.Width*m.Height*m.Channels)
	}
	return nil
}

// Bounds returns the image rectangle anchored at the origin.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// In reports whether (x, y) addresses a pixel of the image.
func (m *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

func (m *Image) offset(x, y int) int {
	return (y*m.Width + x) * m.Channels
}

// At returns the channels at (x, y). The slice aliases the image buffer.
func (m *Image) At(x, y int) Pixel {
	off := m.offset(x, y)
	return m.Pix[off : off+m.Channels : off+m.Channels]
}

// Set copies p into the pixel at (x, y).
func (m *Image) Set(x, y int, p Pixel) {
	copy(m.Pix[m.offset(x, y):m.offset(x, y)+m.Channels], p)
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Image{Width: m.Width, Height: m.Height, Channels: m.Channels, Pix: pix}
}

// ToRGBA converts the image for use with the standard image encoders.
// One channel is treated as gray, two as gray plus alpha, three as RGB
// and four as RGBA.
func (m *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(m.Bounds())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			p := m.At(x, y)
			var c color.RGBA
			switch m.Channels {
			case 1:
				c = color.RGBA{p[0], p[0], p[0], 255}
			case 2:
				c = color.RGBA{p[0], p[0], p[0], p[1]}
			case 3:
				c = color.RGBA{p[0], p[1], p[2], 255}
			default:
				c = color.RGBA{p[0], p[1], p[2], p[3]}
			}
			out.SetRGBA(x, y, c)
		}
	}
	return out
}

// ImageFromStd converts any image.Image into a three-channel RGB Image.
// Alpha is dropped.
func ImageFromStd(src image.Image) (*Image, error) {
	b := src.Bounds()
	img, err := NewImage(b.Dx(), b.Dy(), 3)
	if err != nil {
		return nil, err
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			off := img.offset(x, y)
			img.Pix[off] = c.R
			img.Pix[off+1] = c.G
			img.Pix[off+2] = c.B
		}
	}
	return img, nil
}
