package chart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarsProducesSVG(t *testing.T) {
	html, err := Bars(0, 0, []float64{42, 17, 5}, []string{"Bút bi Thiên Long", "Giấy A4 Double A", "Kẹp <giấy>"}, Options{
		Title:       "Top sản phẩm",
		SeriesLabel: "Số lượng đã bán",
		LabelRunes:  10,
		Integer:     true,
	})
	require.NoError(t, err)
	out := string(html)
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Equal(t, 3, strings.Count(out, "<rect x=")-1, "three bars plus the legend swatch")
	assert.Contains(t, out, "Số lượng đã bán")
	assert.Contains(t, out, "Bút bi Th…")
	assert.Contains(t, out, "Kẹp &lt;giấy&gt;")
	assert.NotContains(t, out, "<giấy>")
}

func TestBarsRejectsMismatchedInput(t *testing.T) {
	_, err := Bars(100, 100, nil, nil, Options{})
	assert.Error(t, err)
	_, err = Bars(100, 100, []float64{1}, []string{"a", "b"}, Options{})
	assert.Error(t, err)
	_, err = Bars(40, 40, []float64{1}, []string{"a"}, Options{Padding: 30})
	assert.Error(t, err)
}

func TestFormatTick(t *testing.T) {
	assert.Equal(t, "3", formatTick(3, true))
	assert.Equal(t, "2.50", formatTick(2.5, false))
	assert.Equal(t, "12.5k", formatTick(12_500, false))
	assert.Equal(t, "1.5M", formatTick(1_500_000, false))
}

func TestBarPositionClampsToViewport(t *testing.T) {
	y, h := barPosition(10, 100, 200, 20, 200)
	assert.Equal(t, 20.0, y)
	assert.Equal(t, 180.0, h)

	y, h = barPosition(-1, 50, 100, 20, 120)
	assert.Equal(t, 100.0, y)
	assert.Equal(t, 20.0, h)
}
