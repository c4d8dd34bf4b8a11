// Package heatmap renders daylight-factor grids as PNG images and coarse
// terminal previews.
package heatmap

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/upskiller-xyz/daylight-tui/internal/inference"
)

// rampStops anchor the DF colour scale: dark blue (no daylight) through
// cyan to yellow (well lit). Positions are fractions of the display range.
var rampStops = []struct {
	pos float64
	col colorful.Color
}{
	{0.0, mustHex("#10204a")},
	{0.35, mustHex("#1f6fb0")},
	{0.65, mustHex("#2fc4b2")},
	{1.0, mustHex("#f7e85c")},
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Color maps a daylight factor onto the ramp. maxDF sets the top of the
// display range; values above it clamp to the brightest stop.
func Color(df, maxDF float64) color.Color {
	if maxDF <= 0 {
		maxDF = 1
	}
	t := df / maxDF
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	for i := 0; i < len(rampStops)-1; i++ {
		a, b := rampStops[i], rampStops[i+1]
		if t >= a.pos && t <= b.pos {
			frac := (t - a.pos) / (b.pos - a.pos)
			blended := a.col.BlendLuv(b.col, frac).Clamped()
			r, g, bl := blended.RGB255()
			return color.NRGBA{R: r, G: g, B: bl, A: 255}
		}
	}
	r, g, b := rampStops[len(rampStops)-1].col.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Options control PNG rendering.
type Options struct {
	MaxDF    float64 // top of the colour scale in percent; 0 means 5%
	CellPx   int     // output pixels per grid cell; 0 means 16
	Smooth   bool    // gaussian-blur the base grid before upscaling
	SmoothPx float64 // blur radius at base resolution; 0 means 1.5
}

func (o Options) withDefaults() Options {
	if o.MaxDF <= 0 {
		o.MaxDF = 5
	}
	if o.CellPx <= 0 {
		o.CellPx = 16
	}
	if o.SmoothPx <= 0 {
		o.SmoothPx = 1.5
	}
	return o
}

// Render paints the heatmap grid. Cells carrying a negative sentinel (out
// of room) stay transparent.
func Render(resp *inference.PredictResponse, opts Options) (image.Image, error) {
	if resp.Cols < 1 || resp.Rows < 1 {
		return nil, fmt.Errorf("empty heatmap grid %dx%d", resp.Cols, resp.Rows)
	}
	opts = opts.withDefaults()

	base := image.NewNRGBA(image.Rect(0, 0, resp.Cols, resp.Rows))
	for row := 0; row < resp.Rows; row++ {
		for col := 0; col < resp.Cols; col++ {
			v := resp.Values[row*resp.Cols+col]
			if v < 0 {
				continue // transparent
			}
			base.Set(col, row, Color(v, opts.MaxDF))
		}
	}

	w, h := resp.Cols*opts.CellPx, resp.Rows*opts.CellPx
	if opts.Smooth {
		blurred := blur.Gaussian(base, opts.SmoothPx)
		return imaging.Resize(blurred, w, h, imaging.Lanczos), nil
	}
	return imaging.Resize(base, w, h, imaging.NearestNeighbor), nil
}

// WritePNG renders and saves the heatmap to path.
func WritePNG(path string, resp *inference.PredictResponse, opts Options) error {
	img, err := Render(resp, opts)
	if err != nil {
		return err
	}
	return imaging.Save(img, path)
}

// TerminalPreview builds a coarse block rendering for display inside the
// TUI. maxWidth bounds the number of character columns used.
func TerminalPreview(resp *inference.PredictResponse, opts Options, maxWidth int) string {
	if resp == nil || resp.Cols < 1 || resp.Rows < 1 {
		return "(no heatmap)"
	}
	opts = opts.withDefaults()
	// Two characters per cell keeps blocks roughly square.
	step := 1
	for resp.Cols/step*2 > maxWidth && step < resp.Cols {
		step++
	}
	var b strings.Builder
	for row := 0; row < resp.Rows; row += step {
		for col := 0; col < resp.Cols; col += step {
			v := resp.Values[row*resp.Cols+col]
			if v < 0 {
				b.WriteString("  ")
				continue
			}
			c, ok := colorful.MakeColor(Color(v, opts.MaxDF))
			if !ok {
				b.WriteString("  ")
				continue
			}
			b.WriteString(lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render("  "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
