package ingest

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	writer := zip.NewWriter(&buf)

	for name, data := range files {
		w, err := writer.Create(name)
		require.NoError(t, err)

		_, err = w.Write(data)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return buf.Bytes()
}

func TestUnpackFiltersAndDedupes(t *testing.T) {
	t.Parallel()

	p := &Pipeline{logger: zaptest.NewLogger(t)}

	archive := buildZip(t, map[string][]byte{
		"looks/blazer.jpg":        []byte("jpeg-bytes-1"),
		"looks/blazer-copy.jpeg":  []byte("jpeg-bytes-1"),
		"looks/coat.png":          []byte("png-bytes"),
		"looks/notes.txt":         []byte("not an image"),
		"__MACOSX/._blazer.jpg":   []byte("resource fork"),
		"looks/.DS_Store":         []byte("finder junk"),
		"looks/swatches/silk.pdf": []byte("pdf"),
	})

	entries, skipped := p.unpack(archive)

	// duplicate content collapses to one entry; junk never counts as skipped
	require.Len(t, entries, 2)
	assert.Equal(t, 2, skipped, "txt and pdf")

	names := []string{entries[0].name, entries[1].name}
	assert.Contains(t, names, "looks/coat.png")

	for _, e := range entries {
		assert.NotEmpty(t, e.hash)
		assert.NotEmpty(t, e.contentType)
	}
}

func TestUnpackContentTypes(t *testing.T) {
	t.Parallel()

	p := &Pipeline{logger: zaptest.NewLogger(t)}

	archive := buildZip(t, map[string][]byte{
		"a.JPG":  []byte("a"),
		"b.webp": []byte("b"),
	})

	entries, skipped := p.unpack(archive)

	require.Len(t, entries, 2)
	assert.Zero(t, skipped)

	byName := make(map[string]entry, len(entries))
	for _, e := range entries {
		byName[e.name] = e
	}

	assert.Equal(t, "image/jpeg", byName["a.JPG"].contentType)
	assert.Equal(t, ".jpg", byName["a.JPG"].ext)
	assert.Equal(t, "image/webp", byName["b.webp"].contentType)
}

func TestUnpackRejectsGarbage(t *testing.T) {
	t.Parallel()

	p := &Pipeline{logger: zaptest.NewLogger(t)}

	entries, skipped := p.unpack([]byte("this is not a zip"))

	assert.Nil(t, entries)
	assert.Zero(t, skipped)
}

func TestReadMemberEnforcesLimit(t *testing.T) {
	t.Parallel()

	archive := buildZip(t, map[string][]byte{
		"big.jpg": bytes.Repeat([]byte("x"), 100),
	})

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	require.Len(t, reader.File, 1)

	_, err = readMember(reader.File[0], 50)
	assert.ErrorIs(t, err, errImageTooLarge, "truncated reads must not pass as valid images")

	data, err := readMember(reader.File[0], 200)
	require.NoError(t, err)
	assert.Len(t, data, 100)
}

func TestJunkEntry(t *testing.T) {
	t.Parallel()

	assert.True(t, junkEntry("__MACOSX/._photo.jpg"))
	assert.True(t, junkEntry("looks/.hidden.png"))
	assert.True(t, junkEntry("Thumbs.db"))
	assert.False(t, junkEntry("looks/blazer.jpg"))
}
