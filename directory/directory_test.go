package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDirectoryResolveMiss(t *testing.T) {
	d := NewMemoryDirectory()
	_, err := d.Resolve(context.Background(), "UNKNOWN")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDirectoryRegisterThenResolve(t *testing.T) {
	d := NewMemoryDirectory()
	entry := RemoteAE{AETitle: "REMOTESCP", Host: "10.0.0.5", Port: 11112}
	require.NoError(t, d.Register(context.Background(), entry))

	got, err := d.Resolve(context.Background(), "REMOTESCP")
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestMemoryDirectoryRegisterOverwrites(t *testing.T) {
	d := NewMemoryDirectory()
	ctx := context.Background()
	require.NoError(t, d.Register(ctx, RemoteAE{AETitle: "DEST", Host: "a", Port: 1}))
	require.NoError(t, d.Register(ctx, RemoteAE{AETitle: "DEST", Host: "b", Port: 2}))

	got, err := d.Resolve(ctx, "DEST")
	require.NoError(t, err)
	assert.Equal(t, RemoteAE{AETitle: "DEST", Host: "b", Port: 2}, got)
}
