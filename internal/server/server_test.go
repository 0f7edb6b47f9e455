package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"fisheye/pkg/codec"
	"fisheye/pkg/fisheye"
)

func solidPNG(t *testing.T, width, height int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	test.That(t, png.Encode(&buf, img), test.ShouldBeNil)
	return buf.Bytes()
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := New(zaptest.NewLogger(t).Sugar(), nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, contentType string, body []byte) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, contentType, bytes.NewReader(body))
	test.That(t, err, test.ShouldBeNil)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	test.That(t, err, test.ShouldBeNil)
	return resp, data
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	test.That(t, err, test.ShouldBeNil)
	defer resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
}

func TestUndistortBase64Endpoint(t *testing.T) {
	ts := newTestServer(t)
	body := []byte(codec.EncodeBase64(solidPNG(t, 4, 4, color.NRGBA{255, 0, 0, 255})))

	resp, data := post(t, ts.URL+"/v1/undistort?family=stereographic&fov=90", "text/plain", body)
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, resp.Header.Get("X-Fisheye-Out-Of-Bounds"), test.ShouldNotBeEmpty)

	decoded, err := codec.DecodeBase64(string(data))
	test.That(t, err, test.ShouldBeNil)
	img, err := codec.DecodeImage(decoded)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Width, test.ShouldEqual, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			test.That(t, []uint8(img.At(x, y)), test.ShouldResemble, []uint8{255, 0, 0})
		}
	}
}

func TestUndistortRawEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, data := post(t, ts.URL+"/v1/undistort/raw?sampling=fill&nodata=0,0,255", "image/png",
		solidPNG(t, 6, 6, color.NRGBA{0, 255, 0, 255}))
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, resp.Header.Get("Content-Type"), test.ShouldEqual, "image/png")
	img, err := codec.DecodeImage(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Height, test.ShouldEqual, 6)
}

func TestUndistortEndpointErrors(t *testing.T) {
	ts := newTestServer(t)
	red := []byte(codec.EncodeBase64(solidPNG(t, 4, 4, color.NRGBA{255, 0, 0, 255})))

	for _, tc := range []struct {
		name string
		path string
		body []byte
		code int
		kind string
	}{
		{"bad base64", "/v1/undistort", []byte("!!!"), http.StatusBadRequest, "decode"},
		{"bad container", "/v1/undistort/raw", []byte("garbage"), http.StatusUnsupportedMediaType, "format"},
		{"bad family", "/v1/undistort?family=panini", red, http.StatusBadRequest, "unsupported_projection_family"},
		{"bad fov", "/v1/undistort?fov=wide", red, http.StatusBadRequest, "invalid_params"},
		{"fov out of range", "/v1/undistort?fov=180", red, http.StatusBadRequest, "invalid_params"},
		{"bad format", "/v1/undistort?format=gif", red, http.StatusUnsupportedMediaType, "format"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp, data := post(t, ts.URL+tc.path, "application/octet-stream", tc.body)
			test.That(t, resp.StatusCode, test.ShouldEqual, tc.code)
			test.That(t, strings.HasPrefix(string(data), tc.kind+":"), test.ShouldBeTrue)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	s := New(nil, nil)
	s.SetMaxBodyBytes(16)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, _ := post(t, ts.URL+"/v1/undistort/raw", "image/png", solidPNG(t, 8, 8, color.NRGBA{A: 255}))
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusRequestEntityTooLarge)
}

func TestServerDefaults(t *testing.T) {
	defaults := fisheye.NewConfig()
	defaults.Family = "linear"
	s := New(nil, defaults)
	req := httptest.NewRequest(http.MethodPost, "/v1/undistort?lens_fov=200&format=jpg", nil)
	p, format, err := s.requestParams(req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Family, test.ShouldEqual, fisheye.Linear)
	test.That(t, p.LensFovDegrees, test.ShouldEqual, 200.0)
	test.That(t, format, test.ShouldEqual, codec.JPEG)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	_, _ = post(t, ts.URL+"/v1/undistort", "text/plain", []byte("!!!"))

	resp, err := http.Get(ts.URL + "/metrics")
	test.That(t, err, test.ShouldBeNil)
	defer resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	data, err := io.ReadAll(resp.Body)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "fisheye_undistort_failures_total")
}
