package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diewo77/go-crm/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	a := ObjectKey("avatars", "Me.PNG")
	b := ObjectKey("avatars", "Me.PNG")
	assert.True(t, strings.HasPrefix(a, "avatars/"))
	assert.True(t, strings.HasSuffix(a, ".png"))
	assert.NotEqual(t, a, b)
}

func TestLocalStore_Save(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root, "/media")

	url, err := s.Save(context.Background(), "avatars/a.png", strings.NewReader("img"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/media/avatars/a.png", url)

	b, err := os.ReadFile(filepath.Join(root, "avatars", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(b))
}

func TestLocalStore_KeyCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root, "/media/")

	url, err := s.Save(context.Background(), "../../etc/x.png", strings.NewReader("x"), 1, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/media/etc/x.png", url)
	_, err = os.Stat(filepath.Join(root, "etc", "x.png"))
	assert.NoError(t, err)
}

func TestNew(t *testing.T) {
	st, err := New(config.StorageConfig{MediaRoot: t.TempDir(), MediaURL: "/media/"})
	require.NoError(t, err)
	_, ok := st.(*LocalStore)
	assert.True(t, ok)

	st, err = New(config.StorageConfig{UseCloud: true, Endpoint: "localhost:9000", Bucket: "crm", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	s3, ok := st.(*S3Store)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:9000/crm", s3.publicURL)
}
