//go:build js && wasm

package main

import (
	"context"
	"syscall/js"

	"fisheye/pkg/codec"
	"fisheye/pkg/fisheye"
)

var (
	lastResult *fisheye.UndistortResult
	lastParams *fisheye.Params
)

func main() {
	js.Global().Set("undistortImage", js.FuncOf(undistortImage))
	js.Global().Set("renderCoverage", js.FuncOf(renderCoverage))
	select {} // block forever
}

// undistortImage(base64Image, options) returns {image, width, height, coverage}
// where image is the base64 encoded PNG result.
func undistortImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return errorResult("usage: undistortImage(base64Image, options)")
	}

	cfg := fisheye.NewConfig()
	format := codec.PNG
	if len(args) >= 2 && args[1].Type() == js.TypeObject {
		opts := args[1]
		if v := opts.Get("family"); v.Type() == js.TypeString {
			cfg.Family = v.String()
		}
		if v := opts.Get("fov"); v.Type() == js.TypeNumber {
			cfg.OutputFovDegrees = v.Float()
		}
		if v := opts.Get("lensFov"); v.Type() == js.TypeNumber {
			cfg.LensFovDegrees = v.Float()
		}
		if v := opts.Get("center"); v.Type() == js.TypeString {
			cfg.Center = v.String()
		}
		if v := opts.Get("sampling"); v.Type() == js.TypeString {
			cfg.Sampling = v.String()
		}
		if v := opts.Get("nodata"); v.Type() == js.TypeObject {
			n := v.Get("length").Int()
			cfg.NoData = make([]int, n)
			for i := 0; i < n; i++ {
				cfg.NoData[i] = v.Index(i).Int()
			}
		}
		if v := opts.Get("format"); v.Type() == js.TypeString {
			f, err := codec.ParseFormat(v.String())
			if err != nil {
				return errorResult(err.Error())
			}
			format = f
		}
	}

	p, err := cfg.Params()
	if err != nil {
		return errorResult("params error: " + err.Error())
	}
	p.StoreCoverageMask = true

	data, err := codec.DecodeBase64(args[0].String())
	if err != nil {
		return errorResult("decode error: " + err.Error())
	}
	out, result, err := codec.UndistortBytes(context.Background(), data, p, format)
	if err != nil {
		return errorResult("undistort error: " + err.Error())
	}
	lastResult = result
	lastParams = p

	return js.ValueOf(map[string]interface{}{
		"image":       codec.EncodeBase64(out),
		"width":       result.Image.Width,
		"height":      result.Image.Height,
		"coverage":    result.Metrics.CoverageFraction(),
		"outOfBounds": result.Metrics.OutOfBounds,
	})
}

func renderCoverage(this js.Value, args []js.Value) interface{} {
	if lastResult == nil {
		return js.Null()
	}

	jpegBytes, err := fisheye.RenderCoverageOverlayBytes(lastResult, lastParams)
	if err != nil {
		return js.Null()
	}

	// Create Uint8Array and copy bytes
	uint8Array := js.Global().Get("Uint8Array").New(len(jpegBytes))
	js.CopyBytesToJS(uint8Array, jpegBytes)
	return uint8Array
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": msg,
	})
}
