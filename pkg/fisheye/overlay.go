package fisheye

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderCoverageOverlay renders the coverage diagnostics of result and writes
// them to outputPath as JPEG.
func RenderCoverageOverlay(result *UndistortResult, p *Params, outputPath string) error {
	img, err := renderCoverageImage(result, p)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return errors.Wrap(err, "create overlay file")
	}
	defer f.Close()

	return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
}

// RenderCoverageOverlayBytes renders the coverage diagnostics of result as JPEG bytes.
func RenderCoverageOverlayBytes(result *UndistortResult, p *Params) ([]byte, error) {
	img, err := renderCoverageImage(result, p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderCoverageImage draws the undistorted image with out-of-bounds pixels
// tinted red, rings at fixed incidence angles and a summary line.
func renderCoverageImage(result *UndistortResult, p *Params) (*image.RGBA, error) {
	if result == nil || result.Image == nil || result.Metrics == nil {
		return nil, errors.New("no undistortion result")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	src := result.Image
	var mask []byte
	if result.DebugData != nil {
		mask = result.DebugData.CoverageMask
	}

	// Render at reduced resolution (800px wide, proportional height)
	const targetWidth = 800
	scale := float64(targetWidth) / float64(src.Width)
	imgW := targetWidth
	imgH := int(float64(src.Height) * scale)
	if imgH < 100 {
		imgH = 100
	}

	summaryH := 60
	totalH := imgH + summaryH
	img := image.NewRGBA(image.Rect(0, 0, imgW, totalH))
	for y := 0; y < totalH; y++ {
		for x := 0; x < imgW; x++ {
			img.Set(x, y, color.RGBA{0, 0, 0, 255})
		}
	}

	view := src.ToRGBA()
	for y := 0; y < imgH; y++ {
		sy := clampInt(int(float64(y)/scale), 0, src.Height-1)
		for x := 0; x < imgW; x++ {
			sx := clampInt(int(float64(x)/scale), 0, src.Width-1)
			c := view.RGBAAt(sx, sy)
			if mask != nil && mask[sy*src.Width+sx] != 0 {
				c = tint(c, color.RGBA{255, 0, 0, 255})
			}
			img.Set(x, y, c)
		}
	}

	// Rings every 15 degrees of incidence inside the destination field of view
	cx := int(float64(src.Width/2+CenterOffset) * scale)
	cy := int(float64(src.Height/2+CenterOffset) * scale)
	ofocinv := InverseFocal(p.OutputFovDegrees, Diagonal(src.Width, src.Height))
	ringColor := color.RGBA{255, 255, 255, 200}
	face := basicfont.Face7x13
	for deg := 15.0; deg < p.OutputFovDegrees/2; deg += 15 {
		rd := math.Tan(deg*math.Pi/180) / ofocinv
		radius := int(rd * scale)
		if radius < 3 {
			continue
		}
		drawCircle(img, cx, cy, radius, ringColor)
		drawText(img, face, fmt.Sprintf("%.0f", deg), cx+radius+2, cy-2, ringColor)
	}
	crossColor := color.RGBA{80, 200, 255, 255}
	drawLine(img, cx-8, cy, cx+8, cy, crossColor)
	drawLine(img, cx, cy-8, cx, cy+8, crossColor)

	summaryColor := color.RGBA{220, 220, 220, 255}
	summaryY := imgH + 15
	line1 := fmt.Sprintf("Family: %s  FOV: %.0f -> %.0f  Policy: %s",
		p.Family, p.LensFovDegrees, p.OutputFovDegrees, p.samplingPolicy().Name())
	line2 := fmt.Sprintf("Coverage: %.1f%%  (%d of %d pixels outside source)",
		100*result.Metrics.CoverageFraction(), result.Metrics.OutOfBounds, result.Metrics.Pixels)
	if mask == nil {
		line2 += "  [NO MASK]"
	}
	drawText(img, face, line1, 10, summaryY, summaryColor)
	drawText(img, face, line2, 10, summaryY+18, summaryColor)

	return img, nil
}

// tint blends c halfway toward t.
func tint(c, t color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8((uint16(c.R) + uint16(t.R)) / 2),
		G: uint8((uint16(c.G) + uint16(t.G)) / 2),
		B: uint8((uint16(c.B) + uint16(t.B)) / 2),
		A: 255,
	}
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCircle draws a circle outline using midpoint algorithm.
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		img.Set(cx+x, cy+y, c)
		img.Set(cx+y, cy+x, c)
		img.Set(cx-y, cy+x, c)
		img.Set(cx-x, cy+y, c)
		img.Set(cx-x, cy-y, c)
		img.Set(cx-y, cy-x, c)
		img.Set(cx+y, cy-x, c)
		img.Set(cx+x, cy-y, c)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := intAbs(x1 - x0)
	dy := -intAbs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func intAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
