package fisheye

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type options struct {
	logger *zap.SugaredLogger
}

// Option customizes a single Undistort call.
type Option func(*options)

// WithLogger sets the logger used for debug timing output.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Undistort runs the full pipeline: it maps every destination pixel back into
// srcImage and samples it with the configured policy. The output has the
// same dimensions as srcImage and is written to a fresh buffer; srcImage is
// only read.
func Undistort(ctx context.Context, srcImage *Image, p *Params, opts ...Option) (*UndistortResult, error) {
	o := options{logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := srcImage.CheckValid(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	mapper, err := NewMapper(srcImage.Width, srcImage.Height, p)
	if err != nil {
		return nil, err
	}
	o.logger.Debugw("mapping destination grid",
		"width", srcImage.Width, "height", srcImage.Height, "params", p.String(),
		"dim", mapper.Dim, "ofocinv", mapper.OFocInv, "ifoc", mapper.Projection.Scale())

	grid, err := mapper.Map(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "mapping coordinates")
	}
	mapped := time.Now()

	debugData := &DebugData{Bounds: srcImage.Bounds()}
	if p.StoreCoverageMask {
		debugData.CoverageMask = make([]byte, srcImage.Width*srcImage.Height)
	}

	dst, outOfBounds, err := sample(ctx, srcImage, grid, p.samplingPolicy(), p.Workers, debugData.CoverageMask)
	if err != nil {
		return nil, errors.Wrap(err, "sampling source")
	}

	metrics := &UndistortMetrics{
		Pixels:       srcImage.Width * srcImage.Height,
		CenterPixels: countCenterPixels(mapper),
		OutOfBounds:  outOfBounds,
		Elapsed:      time.Since(start),
	}
	o.logger.Debugw("undistorted image",
		"map", mapped.Sub(start), "sample", time.Since(mapped),
		"outOfBounds", metrics.OutOfBounds, "coverage", metrics.CoverageFraction())

	return &UndistortResult{
		Image:     dst,
		Metrics:   metrics,
		DebugData: debugData,
	}, nil
}

// countCenterPixels returns how many destination pixels have zero radius.
// Only (xc+1, yc+1) can, and only when it lies inside the grid.
func countCenterPixels(m *Mapper) int {
	i, j := m.XC+CenterOffset, m.YC+CenterOffset
	if i < m.Width && j < m.Height {
		return 1
	}
	return 0
}
