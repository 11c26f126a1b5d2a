package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.UploadObject(ctx, "models/seasonal/P001.json", []byte(`{"a":1}`)))
	require.NoError(t, s.UploadObject(ctx, "models/seasonal/P002.json", []byte(`{}`)))
	require.NoError(t, s.UploadObject(ctx, "models/scaler.json", []byte(`{}`)))
	require.NoError(t, s.UploadObject(ctx, "results/advice.csv", []byte("x")))

	data, err := s.GetObject(ctx, "models/seasonal/P001.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	objects, err := s.ListObjects(ctx, "models/seasonal/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "models/seasonal/P001.json", objects[0].Key)
	assert.Equal(t, int64(7), objects[0].Size)
	assert.Equal(t, "models/seasonal/P002.json", objects[1].Key)
}

func TestLocalStorageMissingObject(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.GetObject(context.Background(), "nope.json")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestLocalStorageMissingRoot(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir() + "/does-not-exist")
	require.NoError(t, err)

	objects, err := s.ListObjects(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "ftp"})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Backend: BackendS3})
	assert.Error(t, err)
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "a/b/c.json", JoinKey("a/", "", "/b", "c.json"))
	assert.Equal(t, "", JoinKey("", "/"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("m/scaler.json"))
	assert.Equal(t, "text/csv", contentType("out/advice.csv"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}
