package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/common"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k1", []byte{0x01, 0x02}))

	got, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, got)

	// mutation of the returned slice must not leak into the store
	got[0] = 0xff
	again, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, again)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrBlobMissing)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k1", []byte("x")))
	require.NoError(t, s.Delete(ctx, "k1"))
	assert.Equal(t, 0, s.Len())

	_, err := s.Get(ctx, "k1")
	assert.ErrorIs(t, err, common.ErrBlobMissing)

	// deleting a missing key is a no-op
	require.NoError(t, s.Delete(ctx, "k1"))
}

func TestNewStorageKey(t *testing.T) {
	k1 := NewStorageKey()
	k2 := NewStorageKey()

	assert.True(t, strings.HasPrefix(k1, "documents/"))
	assert.NotEqual(t, k1, k2)
}
