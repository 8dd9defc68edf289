package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutRecordsObject(t *testing.T) {
	t.Parallel()

	store := New()
	uri, err := store.Put(context.Background(), "videos/20240315.mp4", "video/mp4", strings.NewReader("video"))
	require.NoError(t, err)
	require.Equal(t, "mem://videos/20240315.mp4", uri)

	obj, ok := store.Object("videos/20240315.mp4")
	require.True(t, ok)
	require.Equal(t, "video/mp4", obj.ContentType)
	require.Equal(t, []byte("video"), obj.Data)
	require.Equal(t, 1, store.Len())
}
