// Package placeholder renders the fallback hero image used when remote image
// generation is unavailable.
package placeholder

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

const (
	Width  = 1200
	Height = 630

	titlePoints  = 48
	footerPoints = 20
	sideMargin   = 120
	lineGap      = 8
	footerBottom = 18
)

var (
	background  = color.RGBA{R: 18, G: 33, B: 79, A: 255}
	titleColor  = color.White
	footerColor = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// Renderer draws a topic title and footer caption onto a fixed-size canvas.
type Renderer struct {
	// FontPaths are tried in order; the first parsable TTF wins. When none
	// loads, the built-in 7x13 bitmap face is used.
	FontPaths []string
	Footer    string
}

// New returns a Renderer with the given font candidates and footer caption.
func New(fontPaths []string, footer string) *Renderer {
	return &Renderer{FontPaths: fontPaths, Footer: footer}
}

// Render writes a PNG placeholder for topic to dest.
func (r *Renderer) Render(topic, dest string) error {
	title, footer := r.faces()

	dc := gg.NewContext(Width, Height)
	dc.SetColor(background)
	dc.Clear()

	dc.SetFontFace(title)
	measure := func(s string) float64 {
		w, _ := dc.MeasureString(s)
		return w
	}
	lines := Wrap(strings.Fields(topic), measure, float64(Width-sideMargin))

	var total float64
	heights := make([]float64, len(lines))
	for i, line := range lines {
		_, h := dc.MeasureString(line)
		heights[i] = h
		total += h + lineGap
	}

	y := float64(int((Height - total) / 2))
	dc.SetColor(titleColor)
	for i, line := range lines {
		dc.DrawStringAnchored(line, Width/2, y, 0.5, 1)
		y += heights[i] + lineGap
	}

	if r.Footer != "" {
		dc.SetFontFace(footer)
		_, fh := dc.MeasureString(r.Footer)
		dc.SetColor(footerColor)
		dc.DrawStringAnchored(r.Footer, Width/2, Height-fh-footerBottom, 0.5, 1)
	}

	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("placeholder: create dir: %w", err)
		}
	}
	if err := dc.SavePNG(dest); err != nil {
		return fmt.Errorf("placeholder: save png: %w", err)
	}
	return nil
}

func (r *Renderer) faces() (title, footer font.Face) {
	for _, path := range r.FontPaths {
		f, err := loadFont(path)
		if err != nil {
			continue
		}
		return newFace(f, titlePoints), newFace(f, footerPoints)
	}
	return basicfont.Face7x13, basicfont.Face7x13
}

func loadFont(path string) (*truetype.Font, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty font path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return truetype.Parse(data)
}

func newFace(f *truetype.Font, points float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    points,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Wrap greedily appends words to the current line while measure stays within
// maxWidth. A single word wider than maxWidth still gets its own line.
func Wrap(words []string, measure func(string) float64, maxWidth float64) []string {
	var lines []string
	cur := ""
	for _, w := range words {
		test := strings.TrimSpace(cur + " " + w)
		if measure(test) <= maxWidth {
			cur = test
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
		}
		cur = w
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}
