package fisheye

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ProjectionFamily is the lens model relating incidence angle to image radius.
type ProjectionFamily string

const (
	// Linear is the equidistant model, r = f*phi.
	Linear = ProjectionFamily("linear")
	// EqualArea is the equisolid model, r = 2f*sin(phi/2).
	EqualArea = ProjectionFamily("equalarea")
	// Orthographic is r = f*sin(phi).
	Orthographic = ProjectionFamily("orthographic")
	// Stereographic is r = 2f*tan(phi/2).
	Stereographic = ProjectionFamily("stereographic")
)

// ProjectionFamilies lists every supported family.
var ProjectionFamilies = []ProjectionFamily{Linear, EqualArea, Orthographic, Stereographic}

// ParseProjectionFamily resolves a configured family name.
func ParseProjectionFamily(name string) (ProjectionFamily, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear", "equidistant":
		return Linear, nil
	case "equalarea", "equal-area", "equal_area", "equisolid":
		return EqualArea, nil
	case "orthographic":
		return Orthographic, nil
	case "stereographic":
		return Stereographic, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedProjectionFamily, "%q", name)
	}
}

// CheckValid returns an error if f is not one of the supported families.
func (f ProjectionFamily) CheckValid() error {
	for _, known := range ProjectionFamilies {
		if f == known {
			return nil
		}
	}
	return errors.Wrapf(ErrUnsupportedProjectionFamily, "%q", string(f))
}

// CenterPolicy decides where a destination pixel with zero radius samples from.
type CenterPolicy int

const (
	// ZeroAtCenter sends the zero-radius pixel to the source origin (0, 0).
	ZeroAtCenter CenterPolicy = iota
	// IdentityAtCenter sends the zero-radius pixel to the image center.
	IdentityAtCenter
)

func (c CenterPolicy) String() string {
	switch c {
	case ZeroAtCenter:
		return "zero"
	case IdentityAtCenter:
		return "identity"
	default:
		return "unknown"
	}
}

// ParseCenterPolicy resolves a configured center policy name.
func ParseCenterPolicy(name string) (CenterPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "zero", "zeroatcenter":
		return ZeroAtCenter, nil
	case "identity", "identityatcenter":
		return IdentityAtCenter, nil
	default:
		return 0, errors.Wrapf(ErrInvalidParams, "unknown center policy %q", name)
	}
}

// Params contains the immutable configuration of one undistortion.
type Params struct {
	// OutputFovDegrees is the field of view represented by the destination image.
	OutputFovDegrees float64
	// LensFovDegrees is the physical field of view of the lens.
	LensFovDegrees float64
	Family         ProjectionFamily
	Center         CenterPolicy
	// Sampling is the boundary policy; nil means Clamp.
	Sampling SamplingPolicy
	// Workers bounds the number of rows processed concurrently; 0 uses GOMAXPROCS.
	Workers int
	// StoreCoverageMask keeps a per-pixel out-of-bounds mask in the result.
	StoreCoverageMask bool
}

// NewParams creates a Params with default values.
func NewParams() *Params {
	return &Params{
		OutputFovDegrees: 100,
		LensFovDegrees:   180,
		Family:           Orthographic,
		Center:           ZeroAtCenter,
		Sampling:         Clamp{},
	}
}

// Validate checks the parameters before any pixel is touched.
func (p *Params) Validate() error {
	if p == nil {
		return errors.Wrap(ErrInvalidParams, "params not provided")
	}
	if !(p.OutputFovDegrees > 0 && p.OutputFovDegrees < 180) {
		return errors.Wrapf(ErrInvalidParams, "output fov must be in (0, 180), got %f", p.OutputFovDegrees)
	}
	if !(p.LensFovDegrees > 0 && p.LensFovDegrees < 360) {
		return errors.Wrapf(ErrInvalidParams, "lens fov must be in (0, 360), got %f", p.LensFovDegrees)
	}
	if err := p.Family.CheckValid(); err != nil {
		return err
	}
	if p.Center != ZeroAtCenter && p.Center != IdentityAtCenter {
		return errors.Wrapf(ErrInvalidParams, "unknown center policy %d", int(p.Center))
	}
	if p.Workers < 0 {
		return errors.Wrapf(ErrInvalidParams, "workers must not be negative, got %d", p.Workers)
	}
	return nil
}

func (p *Params) samplingPolicy() SamplingPolicy {
	if p.Sampling == nil {
		return Clamp{}
	}
	return p.Sampling
}

func (p *Params) String() string {
	return fmt.Sprintf("{Family=%s, OutputFov=%f, LensFov=%f, Center=%s, Sampling=%s}",
		p.Family, p.OutputFovDegrees, p.LensFovDegrees, p.Center, p.samplingPolicy().Name())
}

// UndistortMetrics tracks how destination pixels were resolved.
type UndistortMetrics struct {
	Pixels       int
	CenterPixels int
	// OutOfBounds counts destination pixels whose source coordinate fell
	// outside the image, whether clamped or filled.
	OutOfBounds int
	Elapsed     time.Duration
}

// CoverageFraction is the share of destination pixels that sampled inside the source.
func (m *UndistortMetrics) CoverageFraction() float64 {
	if m.Pixels == 0 {
		return 0
	}
	return float64(m.Pixels-m.OutOfBounds) / float64(m.Pixels)
}

// DebugData contains optional diagnostic output of the pipeline.
type DebugData struct {
	// 1 where the source coordinate was out of bounds, 0 otherwise.
	CoverageMask []byte
	Bounds       image.Rectangle
}

// UndistortResult is the output of the pipeline.
type UndistortResult struct {
	Image     *Image
	Metrics   *UndistortMetrics
	DebugData *DebugData
}
