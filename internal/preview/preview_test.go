package preview

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/asodocumentflow/internal/testutil"
)

func TestFitDPI(t *testing.T) {
	assert.Equal(t, 72.0, FitDPI(image.Rect(0, 0, 100, 120), 150))
	assert.Equal(t, 36.0, FitDPI(image.Rect(0, 0, 150, 300), 150))
	assert.InDelta(t, 18.0, FitDPI(image.Rect(0, 0, 600, 400), 150), 0.001)
	assert.Equal(t, 72.0, FitDPI(image.Rectangle{}, 150))
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestThumbnail_FitsMaxSize(t *testing.T) {
	data := testutil.NewPDF(3, 300)

	thumb, err := Thumbnail(data, 1, 100)
	require.NoError(t, err)

	b := decode(t, thumb).Bounds()
	assert.LessOrEqual(t, max(b.Dx(), b.Dy()), 101)
	assert.Greater(t, b.Dx(), b.Dy(), "page 2 is wider than tall")
}

func TestThumbnail_PageOutOfRange(t *testing.T) {
	_, err := Thumbnail(testutil.NewPDF(2, 100), 2, 0)
	assert.True(t, errors.Is(err, ErrPageOutOfRange))
}

func TestGrid(t *testing.T) {
	thumbs, err := Grid(testutil.NewPDF(12, 100), 0, 0)
	require.NoError(t, err)
	assert.Len(t, thumbs, DefaultGridLimit)

	thumbs, err = Grid(testutil.NewPDF(3, 100), 10, 50)
	require.NoError(t, err)
	assert.Len(t, thumbs, 3)
}

func TestThumbnail_Garbage(t *testing.T) {
	_, err := Thumbnail([]byte("not a pdf"), 0, 0)
	assert.Error(t, err)
}
