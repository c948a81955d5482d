package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestStorageFS(t *testing.T) {
	root := t.TempDir()
	fs, err := NewStorageFS(logs.NewTestingLog(t), root)
	require.NoError(t, err)

	content := []byte("not actually a png")
	require.NoError(t, WriteFile(fs, "images/abc.png", bytes.NewReader(content)))

	f, err := fs.ReadFile("images/abc.png")
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), f.Size)
	f.Reader.Close()

	read, err := ReadFile(fs, "images/abc.png")
	require.NoError(t, err)
	require.Equal(t, content, read)

	require.NoError(t, fs.DeleteFile("images/abc.png"))
	_, err = fs.ReadFile("images/abc.png")
	require.Error(t, err)
}

func TestStorageFSRejectsTraversal(t *testing.T) {
	fs, err := NewStorageFS(logs.NewTestingLog(t), t.TempDir())
	require.NoError(t, err)

	_, err = fs.WriteFile("../escape.txt")
	require.Error(t, err)
	_, err = fs.ReadFile("../../etc/passwd")
	require.Error(t, err)
	require.Error(t, fs.DeleteFile("../escape.txt"))
}

func TestStorageFSCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "blobs")
	_, err := NewStorageFS(logs.NewTestingLog(t), root)
	require.NoError(t, err)
	st, err := os.Stat(root)
	require.NoError(t, err)
	require.True(t, st.IsDir())
}
