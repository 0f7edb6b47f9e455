package fisheye

import (
	"context"
	"math"

	"github.com/pkg/errors"
)

// CenterOffset is subtracted from every centered delta: xd = i - xc - CenterOffset.
// Changing it shifts every output pixel.
const CenterOffset = 1

// CoordinateGrid holds one truncated source coordinate per destination pixel,
// row-major. Entries may lie outside the source image.
type CoordinateGrid struct {
	Width  int
	Height int
	XS     []int
	YS     []int
}

// At returns the source coordinate for destination pixel (i, j).
func (g *CoordinateGrid) At(i, j int) (int, int) {
	k := j*g.Width + i
	return g.XS[k], g.YS[k]
}

// Mapper computes source coordinates for a destination grid by inverting the
// lens projection.
type Mapper struct {
	Width  int
	Height int
	// XC and YC are computed with integer division.
	XC         int
	YC         int
	Dim        float64
	OFocInv    float64
	Projection *Projection
	Center     CenterPolicy
	workers    int
}

// NewMapper prepares the mapping of a width x height destination image.
func NewMapper(width, height int, p *Params) (*Mapper, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%d", width, height)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	dim := Diagonal(width, height)
	proj, err := NewProjection(p.Family, p.LensFovDegrees, dim)
	if err != nil {
		return nil, err
	}
	return &Mapper{
		Width:      width,
		Height:     height,
		XC:         width / 2,
		YC:         height / 2,
		Dim:        dim,
		OFocInv:    InverseFocal(p.OutputFovDegrees, dim),
		Projection: proj,
		Center:     p.Center,
		workers:    p.Workers,
	}, nil
}

// Delta returns the centered offsets (xd, yd) of destination pixel (i, j).
func (m *Mapper) Delta(i, j int) (int, int) {
	return i - m.XC - CenterOffset, j - m.YC - CenterOffset
}

// SourceCoordinate returns the untruncated source point for destination pixel
// (i, j). atCenter reports that the pixel has zero radius and was placed by
// the center policy.
func (m *Mapper) SourceCoordinate(i, j int) (xs, ys float64, atCenter bool) {
	dx, dy := m.Delta(i, j)
	xd, yd := float64(dx), float64(dy)
	rd := math.Hypot(xd, yd)
	if rd == 0 {
		if m.Center == IdentityAtCenter {
			return float64(m.XC), float64(m.YC), true
		}
		return 0, 0, true
	}
	phi := IncidenceAngle(m.OFocInv, rd)
	rr := m.Projection.Radius(phi)
	xs = (rr/rd)*xd + float64(m.XC)
	ys = (rr/rd)*yd + float64(m.YC)
	return xs, ys, false
}

// MapPixel returns the source coordinate of (i, j) truncated toward zero.
func (m *Mapper) MapPixel(i, j int) (int, int) {
	xs, ys, _ := m.SourceCoordinate(i, j)
	return int(xs), int(ys)
}

// Map computes the source coordinate of every destination pixel.
func (m *Mapper) Map(ctx context.Context) (*CoordinateGrid, error) {
	n := m.Width * m.Height
	grid := &CoordinateGrid{
		Width:  m.Width,
		Height: m.Height,
		XS:     make([]int, n),
		YS:     make([]int, n),
	}
	err := forEachRowBand(ctx, m.Height, m.workers, func(y0, y1 int) {
		for j := y0; j < y1; j++ {
			row := j * m.Width
			for i := 0; i < m.Width; i++ {
				grid.XS[row+i], grid.YS[row+i] = m.MapPixel(i, j)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return grid, nil
}
