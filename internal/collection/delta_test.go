package collection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/galerija/internal/transfer"
)

func TestBuildDeltaAfterHydrate(t *testing.T) {
	d, err := hydrated(t, "A", "B", "C").BuildDelta(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []transfer.Entry{
		transfer.Reference(1, "A"),
		transfer.Reference(2, "B"),
		transfer.Reference(3, "C"),
	}, d.Entries)
	assert.Empty(t, d.Removals)
}

func TestBuildDeltaMixed(t *testing.T) {
	c := hydrated(t, "A", "B", "C")
	c, _, err := c.Add([]byte("new-bytes"), "image/jpeg")
	require.NoError(t, err)
	c, err = c.Remove(1) // B
	require.NoError(t, err)
	c, err = c.Reorder(2, 0) // new image first
	require.NoError(t, err)

	d, err := c.BuildDelta(t.Context())
	require.NoError(t, err)
	require.NoError(t, d.Check())

	require.Len(t, d.Entries, 3)
	assert.Equal(t, transfer.KindInline, d.Entries[0].Kind)
	assert.Equal(t, 1, d.Entries[0].Order)
	assert.Equal(t, "image/jpeg", d.Entries[0].ContentType)
	data, err := transfer.Decode(d.Entries[0].Encoded)
	require.NoError(t, err)
	assert.Equal(t, []byte("new-bytes"), data)

	assert.Equal(t, transfer.Reference(2, "A"), d.Entries[1])
	assert.Equal(t, transfer.Reference(3, "C"), d.Entries[2])
	assert.Equal(t, []string{"B"}, d.Removals)
}

func TestBuildDeltaOrdersMatchPositions(t *testing.T) {
	c := New(DefaultConfig())
	for i := 0; i < 10; i++ {
		var err error
		c, _, err = c.Add([]byte{byte(i + 1)}, "image/png")
		require.NoError(t, err)
	}

	d, err := c.BuildDelta(t.Context())
	require.NoError(t, err)
	for i, e := range d.Entries {
		assert.Equal(t, i+1, e.Order)
		data, err := transfer.Decode(e.Encoded)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i + 1)}, data, "entry %d encoded out of order", i)
	}
}

func TestBuildDeltaRemovalListedOnce(t *testing.T) {
	c := hydrated(t, "A", "B")
	c, err := c.Remove(0)
	require.NoError(t, err)
	// A stale index now points at B.
	c, err = c.Remove(0)
	require.NoError(t, err)
	_, err = c.Remove(0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	d, err := c.BuildDelta(t.Context())
	require.NoError(t, err)
	assert.Empty(t, d.Entries)
	assert.Equal(t, []string{"A", "B"}, d.Removals)
}

func TestBuildDeltaFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))

	c, _, err := New(DefaultConfig()).AddFile(path, "image/png")
	require.NoError(t, err)

	d, err := c.BuildDelta(t.Context())
	require.NoError(t, err)
	assert.Equal(t, transfer.Encode([]byte("png-bytes")), d.Entries[0].Encoded)
}

func TestBuildDeltaUnreadableSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vanishing.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	c := hydrated(t, "A")
	c, _, err := c.Add([]byte("ok"), "image/png")
	require.NoError(t, err)
	c, _, err = c.AddFile(path, "image/png")
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	d, err := c.BuildDelta(t.Context())
	assert.ErrorIs(t, err, transfer.ErrUnreadableSource)
	assert.Empty(t, d.Entries)
	assert.Equal(t, 3, c.Len())
}

func TestBuildDeltaDoesNotMutate(t *testing.T) {
	c := hydrated(t, "A", "B")
	c, err := c.Remove(0)
	require.NoError(t, err)

	_, err = c.BuildDelta(t.Context())
	require.NoError(t, err)
	_, err = c.BuildDelta(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, ids(c))
	assert.Len(t, c.Removed(), 1)
}
