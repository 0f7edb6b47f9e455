package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fisheye/internal/server"
	"fisheye/pkg/codec"
	"fisheye/pkg/fisheye"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	app := &cli.App{
		Name:  "fisheye",
		Usage: "rectify fisheye images",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.BoolFlag{Name: "json-logs", Usage: "log as JSON"},
		},
		Commands: []*cli.Command{
			{
				Name:      "undistort",
				Usage:     "undistort image files",
				ArgsUsage: "<image>...",
				Flags: append(paramFlags(),
					&cli.StringFlag{Name: "out-dir", Aliases: []string{"o"}, Usage: "output directory (default: next to input)"},
					&cli.StringFlag{Name: "suffix", Value: "_undistorted", Usage: "output file name suffix"},
					&cli.StringFlag{Name: "format", Value: "png", Usage: "output format: png, jpeg, bmp or tiff"},
					&cli.BoolFlag{Name: "coverage", Usage: "also write a coverage overlay JPEG"},
				),
				Action: undistortFiles,
			},
			{
				Name:   "pipe",
				Usage:  "read a base64 image on stdin, write the base64 undistorted PNG on stdout",
				Flags:  paramFlags(),
				Action: undistortPipe,
			},
			{
				Name:  "serve",
				Usage: "serve the undistortion HTTP API",
				Flags: append(paramFlags(),
					&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "listen address"},
					&cli.Int64Flag{Name: "max-body-bytes", Value: server.DefaultMaxBodyBytes, Usage: "request body limit"},
				),
				Action: serve,
			},
		},
	}
	return app.RunContext(ctx, args)
}

func paramFlags() []cli.Flag {
	defaults := fisheye.NewConfig()
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "JSON configuration file"},
		&cli.StringFlag{Name: "family", Value: defaults.Family, Usage: "projection family: linear, equalarea, orthographic, stereographic"},
		&cli.Float64Flag{Name: "fov", Value: defaults.OutputFovDegrees, Usage: "output field of view in degrees"},
		&cli.Float64Flag{Name: "lens-fov", Value: defaults.LensFovDegrees, Usage: "lens field of view in degrees"},
		&cli.StringFlag{Name: "center", Value: defaults.Center, Usage: "zero-radius pixel policy: zero or identity"},
		&cli.StringFlag{Name: "sampling", Value: defaults.Sampling, Usage: "boundary policy: clamp or fill"},
		&cli.StringFlag{Name: "nodata", Usage: "fill value as comma separated channels, e.g. 0,0,0"},
		&cli.IntFlag{Name: "workers", Usage: "concurrent row workers (0 = GOMAXPROCS)"},
	}
}

// configFromFlags starts from --config (or the defaults) and applies the
// flags that were set explicitly.
func configFromFlags(c *cli.Context) (*fisheye.Config, error) {
	cfg := fisheye.NewConfig()
	if path := c.String("config"); path != "" {
		loaded, err := fisheye.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet("family") {
		cfg.Family = c.String("family")
	}
	if c.IsSet("fov") {
		cfg.OutputFovDegrees = c.Float64("fov")
	}
	if c.IsSet("lens-fov") {
		cfg.LensFovDegrees = c.Float64("lens-fov")
	}
	if c.IsSet("center") {
		cfg.Center = c.String("center")
	}
	if c.IsSet("sampling") {
		cfg.Sampling = c.String("sampling")
	}
	if c.IsSet("nodata") {
		nodata, err := fisheye.ParseNoData(c.String("nodata"))
		if err != nil {
			return nil, err
		}
		cfg.NoData = nodata
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	return cfg, nil
}

func newLogger(c *cli.Context) (*zap.SugaredLogger, error) {
	var zc zap.Config
	if c.Bool("json-logs") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}
	zc.OutputPaths = []string{"stderr"}
	if c.Bool("debug") {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logger.Sugar(), nil
}

func undistortFiles(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: fisheye undistort [options] <image>...", 2)
	}
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := configFromFlags(c)
	if err != nil {
		return err
	}
	p, err := cfg.Params()
	if err != nil {
		return err
	}
	p.StoreCoverageMask = c.Bool("coverage")
	format, err := codec.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	var errs error
	for idx, input := range c.Args().Slice() {
		outPath := outputPath(input, c.String("out-dir"), c.String("suffix"), format)
		start := time.Now()
		result, err := undistortFile(c.Context, input, outPath, p, format, logger)
		if err != nil {
			logger.Errorw("skipping image", "index", idx+1, "input", input, "error", err)
			errs = multierr.Append(errs, errors.Wrap(err, input))
			continue
		}
		logger.Infow("undistorted",
			"index", idx+1, "input", input, "output", outPath,
			"size", fmt.Sprintf("%dx%d", result.Image.Width, result.Image.Height),
			"coverage", fmt.Sprintf("%.1f%%", 100*result.Metrics.CoverageFraction()),
			"elapsed", time.Since(start))

		if c.Bool("coverage") {
			overlayPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_coverage.jpg"
			if err := fisheye.RenderCoverageOverlay(result, p, overlayPath); err != nil {
				errs = multierr.Append(errs, errors.Wrap(err, overlayPath))
				continue
			}
			logger.Infow("wrote coverage overlay", "path", overlayPath)
		}
	}
	return errs
}

func undistortFile(ctx context.Context, input, output string, p *fisheye.Params, format codec.Format, logger *zap.SugaredLogger) (*fisheye.UndistortResult, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, errors.Wrap(err, "reading image")
	}
	out, result, err := codec.UndistortBytes(ctx, data, p, format, fisheye.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		return nil, errors.Wrap(err, "writing image")
	}
	return result, nil
}

// outputPath places the result in outDir, or next to input when outDir is empty.
func outputPath(input, outDir, suffix string, format codec.Format) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + suffix + format.Extension()
	if outDir == "" {
		return filepath.Join(filepath.Dir(input), base)
	}
	return filepath.Join(outDir, base)
}

func undistortPipe(c *cli.Context) error {
	cfg, err := configFromFlags(c)
	if err != nil {
		return err
	}
	p, err := cfg.Params()
	if err != nil {
		return err
	}
	in, err := io.ReadAll(os.Stdin)
	if err != nil {
		return errors.Wrap(err, "reading stdin")
	}
	out, err := codec.UndistortBase64(c.Context, string(in), p, codec.PNG)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, out)
	return err
}

func serve(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := configFromFlags(c)
	if err != nil {
		return err
	}
	if _, err := cfg.Params(); err != nil {
		return err
	}
	srv := server.New(logger, cfg)
	srv.SetMaxBodyBytes(c.Int64("max-body-bytes"))
	return srv.ListenAndServe(c.Context, c.String("addr"))
}
