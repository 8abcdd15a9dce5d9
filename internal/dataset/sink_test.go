package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmcquay/othello-dataset/internal/othello"
)

func openingRow(t *testing.T) Row {
	t.Helper()
	b := othello.NewBoard()
	return Row{Board: b.Flatten(), Move: 26}
}

func TestFormatBoard(t *testing.T) {
	b := othello.NewBoard()
	got := FormatBoard(b.Flatten())

	fields := strings.Split(got, " ")
	require.Len(t, fields, othello.Cells)
	assert.Equal(t, "2", fields[27])
	assert.Equal(t, "1", fields[28])
	assert.Equal(t, "1", fields[35])
	assert.Equal(t, "2", fields[36])
	assert.Equal(t, "0", fields[0])
	assert.Equal(t, "0", fields[63])
}

func TestCSVSink(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewCSVSink(&buf)
	require.NoError(t, err)

	require.NoError(t, sink.WriteRow(openingRow(t)))
	require.NoError(t, sink.Close())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "board,move", lines[0])

	b := othello.NewBoard()
	assert.Equal(t, FormatBoard(b.Flatten())+",26", lines[1])
}

func TestMsgpackRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewMsgpackSink(&buf)
	require.NoError(t, err)

	first := openingRow(t)
	second := Row{Board: othello.Apply(othello.NewBoard(), othello.Move{Row: 3, Col: 2}, othello.Black).Flatten(), Move: 20}
	require.NoError(t, sink.WriteRow(first))
	require.NoError(t, sink.WriteRow(second))
	require.NoError(t, sink.Close())

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("ODS1")))

	rows, err := ReadMsgpack(&buf)
	require.NoError(t, err)
	assert.Equal(t, []Row{first, second}, rows)
}

func TestReadMsgpackRejectsOtherFiles(t *testing.T) {
	_, err := ReadMsgpack(strings.NewReader("board,move\n"))
	assert.Error(t, err)
}

func TestNewSink(t *testing.T) {
	dir := t.TempDir()

	t.Run("truncates existing file", func(t *testing.T) {
		path := filepath.Join(dir, "out.csv")
		require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the header\n"), 0o644))

		sink, err := NewSink(path, "csv")
		require.NoError(t, err)
		require.NoError(t, sink.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "board,move\r\n", string(data))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := NewSink(filepath.Join(dir, "out.parquet"), "parquet")
		assert.Error(t, err)
	})

	t.Run("unwritable path", func(t *testing.T) {
		_, err := NewSink(filepath.Join(dir, "missing", "out.csv"), "csv")
		assert.Error(t, err)
	})
}
