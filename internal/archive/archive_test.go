package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(b)
	}
	return out
}

func TestPack_ThreeEntries(t *testing.T) {
	data, err := Pack([]Entry{
		{Name: "parte_1.pdf", Data: []byte("one")},
		{Name: "ASO 05032024 MARIA.pdf", Data: []byte("two")},
		{Name: "parte_3.pdf", Data: []byte("three")},
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)
	assert.Equal(t, "parte_1.pdf", zr.File[0].Name)
	assert.Equal(t, "ASO 05032024 MARIA.pdf", zr.File[1].Name)
	assert.Equal(t, "parte_3.pdf", zr.File[2].Name)
	assert.Equal(t, zip.Deflate, zr.File[0].Method)

	contents := readArchive(t, data)
	assert.Equal(t, "two", contents["ASO 05032024 MARIA.pdf"])
}

func TestPack_DuplicateNamesAreSuffixed(t *testing.T) {
	data, err := Pack([]Entry{
		{Name: "ASO 05032024 ANA.pdf", Data: []byte("a")},
		{Name: "ASO 05032024 ANA.pdf", Data: []byte("b")},
		{Name: "aso 05032024 ana.pdf", Data: []byte("c")},
	})
	require.NoError(t, err)

	contents := readArchive(t, data)
	assert.Len(t, contents, 3)
	assert.Equal(t, "a", contents["ASO 05032024 ANA.pdf"])
	assert.Equal(t, "b", contents["ASO 05032024 ANA (2).pdf"])
	assert.Equal(t, "c", contents["aso 05032024 ana (3).pdf"])
}

func TestPack_Deterministic(t *testing.T) {
	entries := []Entry{{Name: "a.pdf", Data: []byte("x")}, {Name: "b.pdf", Data: []byte("y")}}
	first, err := Pack(entries)
	require.NoError(t, err)
	second, err := Pack(entries)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUniqueNames(t *testing.T) {
	got := UniqueNames([]string{"a.pdf", "a.pdf", "a (2).pdf", "b", "b"})
	assert.Equal(t, []string{"a.pdf", "a (2).pdf", "a (2) (2).pdf", "b", "b (2)"}, got)
}
