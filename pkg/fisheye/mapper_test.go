package fisheye

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func paramsFor(family ProjectionFamily, outputFov, lensFov float64) *Params {
	p := NewParams()
	p.Family = family
	p.OutputFovDegrees = outputFov
	p.LensFovDegrees = lensFov
	return p
}

func TestMapperCenter(t *testing.T) {
	m, err := NewMapper(8, 6, paramsFor(Orthographic, 100, 100))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.XC, test.ShouldEqual, 4)
	test.That(t, m.YC, test.ShouldEqual, 3)

	dx, dy := m.Delta(m.XC+1, m.YC+1)
	test.That(t, dx, test.ShouldEqual, 0)
	test.That(t, dy, test.ShouldEqual, 0)

	xs, ys, atCenter := m.SourceCoordinate(5, 4)
	test.That(t, atCenter, test.ShouldBeTrue)
	test.That(t, xs, test.ShouldEqual, 0.0)
	test.That(t, ys, test.ShouldEqual, 0.0)

	// The geometric center is not the zero-radius pixel.
	_, _, atCenter = m.SourceCoordinate(4, 3)
	test.That(t, atCenter, test.ShouldBeFalse)

	p := paramsFor(Orthographic, 100, 100)
	p.Center = IdentityAtCenter
	m, err = NewMapper(8, 6, p)
	test.That(t, err, test.ShouldBeNil)
	x, y := m.MapPixel(5, 4)
	test.That(t, x, test.ShouldEqual, 4)
	test.That(t, y, test.ShouldEqual, 3)
}

func TestMapperKnownValues(t *testing.T) {
	type point struct {
		i, j   int
		xs, ys float64
	}
	cases := map[ProjectionFamily][]point{
		Linear:        {{0, 0, 0.649392, 0.649392}, {3, 1, 2, 0.739127}, {1, 2, 0.783035, 1.391518}},
		EqualArea:     {{0, 0, 0.569202, 0.569202}, {3, 1, 2, 0.62796}, {1, 2, 0.680221, 1.340111}},
		Orthographic:  {{0, 0, 0.254542, 0.254542}, {3, 1, 2, 0.17736}, {1, 2, 0.265185, 1.132593}},
		Stereographic: {{0, 0, 0.827138, 0.827138}, {3, 1, 2, 0.96716}, {1, 2, 0.995964, 1.497982}},
	}
	for family, points := range cases {
		t.Run(string(family), func(t *testing.T) {
			m, err := NewMapper(4, 4, paramsFor(family, 100, 180))
			test.That(t, err, test.ShouldBeNil)
			for _, pt := range points {
				xs, ys, atCenter := m.SourceCoordinate(pt.i, pt.j)
				test.That(t, atCenter, test.ShouldBeFalse)
				test.That(t, xs, test.ShouldAlmostEqual, pt.xs, 1e-6)
				test.That(t, ys, test.ShouldAlmostEqual, pt.ys, 1e-6)
			}
		})
	}
}

func TestMapperTruncatesTowardZero(t *testing.T) {
	m, err := NewMapper(20, 10, paramsFor(Linear, 100, 60))
	test.That(t, err, test.ShouldBeNil)

	xs, ys, _ := m.SourceCoordinate(0, 0)
	test.That(t, xs, test.ShouldAlmostEqual, -7.398082, 1e-6)
	test.That(t, ys, test.ShouldAlmostEqual, -4.489863, 1e-6)
	x, y := m.MapPixel(0, 0)
	test.That(t, x, test.ShouldEqual, -7)
	test.That(t, y, test.ShouldEqual, -4)

	x, y = m.MapPixel(19, 9)
	test.That(t, x, test.ShouldEqual, 24)
	test.That(t, y, test.ShouldEqual, 10)

	x, y = m.MapPixel(0, 5)
	test.That(t, x, test.ShouldEqual, -8)
	test.That(t, y, test.ShouldEqual, 3)
}

func TestMapperPreservesDirection(t *testing.T) {
	for _, family := range ProjectionFamilies {
		for _, fovs := range [][2]float64{{100, 180}, {60, 120}, {170, 300}} {
			m, err := NewMapper(13, 9, paramsFor(family, fovs[0], fovs[1]))
			test.That(t, err, test.ShouldBeNil)
			for j := 0; j < m.Height; j++ {
				for i := 0; i < m.Width; i++ {
					dx, dy := m.Delta(i, j)
					xs, ys, atCenter := m.SourceCoordinate(i, j)
					if dx == 0 && dy == 0 {
						test.That(t, atCenter, test.ShouldBeTrue)
						test.That(t, xs, test.ShouldEqual, 0.0)
						test.That(t, ys, test.ShouldEqual, 0.0)
						continue
					}
					test.That(t, atCenter, test.ShouldBeFalse)
					vx, vy := xs-float64(m.XC), ys-float64(m.YC)
					cross := vx*float64(dy) - vy*float64(dx)
					dot := vx*float64(dx) + vy*float64(dy)
					test.That(t, math.Abs(cross), test.ShouldBeLessThan, 1e-9)
					test.That(t, dot, test.ShouldBeGreaterThanOrEqualTo, 0.0)
				}
			}
		}
	}
}

func TestMapMatchesPixelwise(t *testing.T) {
	p := paramsFor(Stereographic, 120, 190)
	p.Workers = 3
	m, err := NewMapper(31, 17, p)
	test.That(t, err, test.ShouldBeNil)

	grid, err := m.Map(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, grid.Width, test.ShouldEqual, 31)
	test.That(t, grid.Height, test.ShouldEqual, 17)
	test.That(t, grid.XS, test.ShouldHaveLength, 31*17)
	for j := 0; j < 17; j++ {
		for i := 0; i < 31; i++ {
			x, y := grid.At(i, j)
			ex, ey := m.MapPixel(i, j)
			test.That(t, x, test.ShouldEqual, ex)
			test.That(t, y, test.ShouldEqual, ey)
		}
	}
	cx, cy := grid.At(m.XC+1, m.YC+1)
	test.That(t, cx, test.ShouldEqual, 0)
	test.That(t, cy, test.ShouldEqual, 0)
}

func TestMapSinglePixel(t *testing.T) {
	for _, family := range ProjectionFamilies {
		m, err := NewMapper(1, 1, paramsFor(family, 100, 180))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, m.XC, test.ShouldEqual, 0)
		test.That(t, m.YC, test.ShouldEqual, 0)
		grid, err := m.Map(context.Background())
		test.That(t, err, test.ShouldBeNil)
		x, y := grid.At(0, 0)
		test.That(t, x, test.ShouldEqual, 0)
		test.That(t, y, test.ShouldEqual, 0)
	}
}

func TestMapCancelled(t *testing.T) {
	m, err := NewMapper(16, 16, NewParams())
	test.That(t, err, test.ShouldBeNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Map(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestNewMapperErrors(t *testing.T) {
	_, err := NewMapper(0, 4, NewParams())
	test.That(t, errors.Is(err, ErrInvalidDimensions), test.ShouldBeTrue)

	_, err = NewMapper(4, 4, paramsFor(ProjectionFamily("panini"), 100, 180))
	test.That(t, errors.Is(err, ErrUnsupportedProjectionFamily), test.ShouldBeTrue)

	_, err = NewMapper(4, 4, paramsFor(Linear, 180, 180))
	test.That(t, errors.Is(err, ErrInvalidParams), test.ShouldBeTrue)
}
