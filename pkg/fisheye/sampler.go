package fisheye

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// SamplingPolicy decides how a source coordinate outside the image is read.
type SamplingPolicy interface {
	Name() string
	// Resolve maps (x, y) onto a width x height image. When ok is false the
	// caller writes NoData instead of reading the source.
	Resolve(x, y, width, height int) (sx, sy int, ok bool)
	NoData() Pixel
}

// Clamp pins out-of-range coordinates to the nearest edge pixel.
type Clamp struct{}

// Name implements SamplingPolicy.
func (Clamp) Name() string { return "clamp" }

// Resolve implements SamplingPolicy. ok is always true.
func (Clamp) Resolve(x, y, width, height int) (int, int, bool) {
	return clampInt(x, 0, width-1), clampInt(y, 0, height-1), true
}

// NoData implements SamplingPolicy.
func (Clamp) NoData() Pixel { return nil }

// FillWithConstant substitutes Value for every out-of-range coordinate.
type FillWithConstant struct {
	Value Pixel
}

// Name implements SamplingPolicy.
func (FillWithConstant) Name() string { return "fill" }

// Resolve implements SamplingPolicy.
func (f FillWithConstant) Resolve(x, y, width, height int) (int, int, bool) {
	if x < 0 || y < 0 || x > width-1 || y > height-1 {
		return 0, 0, false
	}
	return x, y, true
}

// NoData implements SamplingPolicy.
func (f FillWithConstant) NoData() Pixel { return f.Value }

// ParseSamplingPolicy selects a policy by name. nodata is only used by "fill";
// a nil nodata fills with zeros.
func ParseSamplingPolicy(name string, nodata Pixel) (SamplingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "clamp":
		return Clamp{}, nil
	case "fill", "nodata", "constant":
		return FillWithConstant{Value: nodata}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidParams, "unknown sampling policy %q", name)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sample reads src at every grid coordinate into a new image of the grid's
// shape. src is never written.
func Sample(ctx context.Context, src *Image, grid *CoordinateGrid, policy SamplingPolicy) (*Image, error) {
	dst, _, err := sample(ctx, src, grid, policy, 0, nil)
	return dst, err
}

// sample fills dst row bands concurrently. mask, when non-nil, receives 1 for
// every destination pixel whose coordinate was outside src.
func sample(ctx context.Context, src *Image, grid *CoordinateGrid, policy SamplingPolicy, workers int, mask []byte) (*Image, int, error) {
	if err := src.CheckValid(); err != nil {
		return nil, 0, err
	}
	if policy == nil {
		policy = Clamp{}
	}
	nodata := make(Pixel, src.Channels)
	copy(nodata, policy.NoData())

	dst, err := NewImage(grid.Width, grid.Height, src.Channels)
	if err != nil {
		return nil, 0, err
	}

	outOfBounds := make([]int, grid.Height)
	err = forEachRowBand(ctx, grid.Height, workers, func(y0, y1 int) {
		for j := y0; j < y1; j++ {
			for i := 0; i < grid.Width; i++ {
				x, y := grid.At(i, j)
				if !src.In(x, y) {
					outOfBounds[j]++
					if mask != nil {
						mask[j*grid.Width+i] = 1
					}
				}
				sx, sy, ok := policy.Resolve(x, y, src.Width, src.Height)
				if ok {
					dst.Set(i, j, src.At(sx, sy))
				} else {
					dst.Set(i, j, nodata)
				}
			}
		}
	})
	if err != nil {
		return nil, 0, err
	}

	total := 0
	for _, n := range outOfBounds {
		total += n
	}
	return dst, total, nil
}
