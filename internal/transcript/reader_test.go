package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "[Player1 \"A\"]\n[Player2 \"B\"]\n1. c4 e3 2. f5\n"

func TestReadFilePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	src, err := ReadFile(path, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, sample, src.Text)
	assert.Equal(t, int64(len(sample)), src.DiskSize)
	assert.Equal(t, path, src.Path)
}

func TestReadFileBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.txt")
	data := append([]byte{0xEF, 0xBB, 0xBF}, sample...)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	src, err := ReadFile(path, ReadOptions{Charset: "utf-8"})
	require.NoError(t, err)

	assert.Equal(t, sample, src.Text)
	assert.Equal(t, Parse(sample), Parse(src.Text))
}

func TestReadFileLatin1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.txt")
	// "Ren\xe9" is "René" in ISO-8859-1.
	require.NoError(t, os.WriteFile(path, []byte("[Black \"Ren\xe9\"]\n1. f5\n"), 0o644))

	src, err := ReadFile(path, ReadOptions{Charset: "ISO-8859-1"})
	require.NoError(t, err)

	games := Parse(src.Text)
	require.Len(t, games, 1)
	assert.Equal(t, "René", games[0].Headers["Black"])
}

func TestReadFileBzip2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.txt.bz2")
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := bzip2.NewWriter(f, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	src, err := ReadFile(path, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, sample, src.Text)
}

func TestReadFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "nope"), ReadOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unknown charset", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "games.txt")
		require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

		_, err := ReadFile(path, ReadOptions{Charset: "klingon-8"})
		assert.Error(t, err)
	})
}
