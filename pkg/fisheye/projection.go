package fisheye

import "math"

// Projection maps an incidence angle to a radial distance in source pixels
// for one lens family. It is immutable once built.
type Projection struct {
	Family         ProjectionFamily
	LensFovDegrees float64
	// Dim is the image diagonal the projection is scaled to.
	Dim  float64
	ifoc float64
}

// NewProjection precomputes the family scale for a lens of lensFovDegrees
// imaged onto a frame with diagonal dim.
func NewProjection(family ProjectionFamily, lensFovDegrees, dim float64) (*Projection, error) {
	if err := family.CheckValid(); err != nil {
		return nil, err
	}
	return &Projection{
		Family:         family,
		LensFovDegrees: lensFovDegrees,
		Dim:            dim,
		ifoc:           focalScale(family, lensFovDegrees, dim),
	}, nil
}

func focalScale(family ProjectionFamily, fov, dim float64) float64 {
	switch family {
	case Linear:
		return dim * 180 / (fov * math.Pi)
	case EqualArea:
		return dim / (2.0 * math.Sin(fov*math.Pi/720))
	case Orthographic:
		return dim / (2.0 * math.Sin(fov*math.Pi/360))
	case Stereographic:
		return dim / (2.0 * math.Tan(fov*math.Pi/720))
	default:
		return math.NaN()
	}
}

// Scale returns the family focal scale (ifoc).
func (p *Projection) Scale() float64 {
	return p.ifoc
}

// Radius returns the source radius rr for incidence angle phi.
func (p *Projection) Radius(phi float64) float64 {
	switch p.Family {
	case Linear:
		return p.ifoc * phi
	case EqualArea:
		return p.ifoc * math.Sin(phi/2)
	case Orthographic:
		return p.ifoc * math.Sin(phi)
	case Stereographic:
		return p.ifoc * math.Tan(phi/2)
	default:
		return math.NaN()
	}
}

// InverseFocal returns ofocinv, the reciprocal of the rectilinear focal length
// of a destination frame with diagonal dim spanning outputFovDegrees.
func InverseFocal(outputFovDegrees, dim float64) float64 {
	ofoc := dim / (2 * math.Tan(outputFovDegrees*math.Pi/360))
	return 1.0 / ofoc
}

// IncidenceAngle converts a destination radius into an incidence angle.
// The destination side is always rectilinear regardless of lens family.
func IncidenceAngle(ofocinv, rd float64) float64 {
	return math.Atan(ofocinv * rd)
}

// Diagonal returns sqrt(width^2 + height^2).
func Diagonal(width, height int) float64 {
	w, h := float64(width), float64(height)
	return math.Sqrt(w*w + h*h)
}
