package placeholder

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

func charWidth(s string) float64 { return float64(len(s)) * 10 }

func TestWrapGreedy(t *testing.T) {
	words := strings.Fields("aa bb cc dd eeeeeeeeeeee f")
	lines := Wrap(words, charWidth, 50)
	assert.Equal(t, []string{"aa bb", "cc dd", "eeeeeeeeeeee", "f"}, lines)
}

func TestWrapEmpty(t *testing.T) {
	assert.Empty(t, Wrap(nil, charWidth, 100))
}

func TestWrapIsIdempotentWithSameMetrics(t *testing.T) {
	dc := gg.NewContext(Width, Height)
	dc.SetFontFace(basicfont.Face7x13)
	measure := func(s string) float64 {
		w, _ := dc.MeasureString(s)
		return w
	}
	topic := strings.Repeat("Modern data platforms need boring reliable pipelines ", 8)

	first := Wrap(strings.Fields(topic), measure, Width-sideMargin)
	second := Wrap(strings.Fields(topic), measure, Width-sideMargin)
	require.NotEmpty(t, first)
	assert.Greater(t, len(first), 1)
	assert.Equal(t, first, second)
	for _, line := range first {
		assert.LessOrEqual(t, measure(line), float64(Width-sideMargin))
	}
}

func TestRenderProducesFixedSizePNG(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "hero.png")
	r := New([]string{filepath.Join(t.TempDir(), "missing.ttf")}, "Data Engineering • AI • Practical Tips")

	require.NoError(t, r.Render("Cloud Migration without the drama", dest))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())

	r0, g0, b0, _ := img.At(2, 2).RGBA()
	assert.Equal(t, uint32(18), r0>>8)
	assert.Equal(t, uint32(33), g0>>8)
	assert.Equal(t, uint32(79), b0>>8)
}

func TestRenderFallsBackOnUnparsableFont(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "bogus.ttf")
	require.NoError(t, os.WriteFile(bogus, []byte("not a font"), 0o644))

	r := New([]string{"", bogus}, "")
	title, footer := r.faces()
	assert.Equal(t, basicfont.Face7x13, title)
	assert.Equal(t, basicfont.Face7x13, footer)

	require.NoError(t, r.Render("", filepath.Join(dir, "empty.png")))
}

func TestRenderFailsOnUnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	r := New(nil, "")
	err := r.Render("topic", filepath.Join(blocker, "hero.png"))
	assert.Error(t, err)
}
