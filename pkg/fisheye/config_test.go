package fisheye

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestDefaultConfigMatchesParams(t *testing.T) {
	p, err := NewConfig().Params()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p, test.ShouldResemble, NewParams())
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader(`{
		"family": "Equal-Area",
		"output_fov": 120,
		"sampling": "fill",
		"nodata": [255, 0, 255],
		"center": "identity",
		"workers": 2
	}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.LensFovDegrees, test.ShouldEqual, 180.0)

	p, err := cfg.Params()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Family, test.ShouldEqual, EqualArea)
	test.That(t, p.OutputFovDegrees, test.ShouldEqual, 120.0)
	test.That(t, p.Center, test.ShouldEqual, IdentityAtCenter)
	test.That(t, p.Workers, test.ShouldEqual, 2)
	test.That(t, p.Sampling.Name(), test.ShouldEqual, "fill")
	test.That(t, []uint8(p.Sampling.NoData()), test.ShouldResemble, []uint8{255, 0, 255})

	_, err = ReadConfig(strings.NewReader(`{"focal": 3}`))
	test.That(t, errors.Is(err, ErrInvalidParams), test.ShouldBeTrue)
}

func TestConfigParamsErrors(t *testing.T) {
	cfg := NewConfig()
	cfg.Family = "cylindrical"
	_, err := cfg.Params()
	test.That(t, errors.Is(err, ErrUnsupportedProjectionFamily), test.ShouldBeTrue)

	cfg = NewConfig()
	cfg.NoData = []int{0, 256}
	_, err = cfg.Params()
	test.That(t, errors.Is(err, ErrInvalidParams), test.ShouldBeTrue)

	cfg = NewConfig()
	cfg.LensFovDegrees = 360
	_, err = cfg.Params()
	test.That(t, errors.Is(err, ErrInvalidParams), test.ShouldBeTrue)

	cfg = NewConfig()
	cfg.Center = "middle"
	_, err = cfg.Params()
	test.That(t, errors.Is(err, ErrInvalidParams), test.ShouldBeTrue)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fisheye.json")
	test.That(t, os.WriteFile(path, []byte(`{"family": "linear", "lens_fov": 200}`), 0o600), test.ShouldBeNil)
	cfg, err := LoadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Family, test.ShouldEqual, "linear")
	test.That(t, cfg.LensFovDegrees, test.ShouldEqual, 200.0)
	test.That(t, cfg.OutputFovDegrees, test.ShouldEqual, 100.0)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseNoData(t *testing.T) {
	v, err := ParseNoData(" 1, 2 ,3")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, []int{1, 2, 3})

	v, err = ParseNoData("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldBeNil)

	_, err = ParseNoData("1,x")
	test.That(t, errors.Is(err, ErrInvalidParams), test.ShouldBeTrue)
}
