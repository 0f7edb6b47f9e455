package fisheye

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config is the serializable form of Params, as read from JSON files, CLI
// flags and query strings.
type Config struct {
	Family           string  `json:"family"`
	OutputFovDegrees float64 `json:"output_fov"`
	LensFovDegrees   float64 `json:"lens_fov"`
	Center           string  `json:"center"`
	Sampling         string  `json:"sampling"`
	NoData           []int   `json:"nodata,omitempty"`
	Workers          int     `json:"workers"`
}

// NewConfig returns the configuration matching NewParams.
func NewConfig() *Config {
	return &Config{
		Family:           string(Orthographic),
		OutputFovDegrees: 100,
		LensFovDegrees:   180,
		Center:           ZeroAtCenter.String(),
		Sampling:         Clamp{}.Name(),
	}
}

// ReadConfig decodes JSON from r on top of the defaults. Unknown fields are rejected.
func ReadConfig(r io.Reader) (*Config, error) {
	cfg := NewConfig()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(ErrInvalidParams, err.Error())
	}
	return cfg, nil
}

// LoadConfig reads a JSON configuration file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening config")
	}
	defer f.Close()
	cfg, err := ReadConfig(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return cfg, nil
}

// Params resolves the configuration into validated Params.
func (c *Config) Params() (*Params, error) {
	family, err := ParseProjectionFamily(c.Family)
	if err != nil {
		return nil, err
	}
	center, err := ParseCenterPolicy(c.Center)
	if err != nil {
		return nil, err
	}
	nodata := make(Pixel, len(c.NoData))
	for i, v := range c.NoData {
		if v < 0 || v > 255 {
			return nil, errors.Wrapf(ErrInvalidParams, "nodata channel %d out of range: %d", i, v)
		}
		nodata[i] = uint8(v)
	}
	sampling, err := ParseSamplingPolicy(c.Sampling, nodata)
	if err != nil {
		return nil, err
	}
	p := &Params{
		OutputFovDegrees: c.OutputFovDegrees,
		LensFovDegrees:   c.LensFovDegrees,
		Family:           family,
		Center:           center,
		Sampling:         sampling,
		Workers:          c.Workers,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseNoData parses a comma separated list of channel values such as "0,0,0".
func ParseNoData(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidParams, "nodata %q", s)
		}
		out[i] = v
	}
	return out, nil
}
