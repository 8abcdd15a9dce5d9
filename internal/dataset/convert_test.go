package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmcquay/othello-dataset/internal/config"
	"github.com/dmmcquay/othello-dataset/internal/logging"
	"github.com/dmmcquay/othello-dataset/internal/metrics"
)

const twoGames = `[Event "Club"]
[Black "A"]
[White "B"]
1. f5 d6 2. c3 d3 3. c4 f4
4. c5 b3 37-27

[Event "Club"]
[Black "C"]
1. c4 e3 2. f5 x9 3. b4
`

func writeTranscript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datas")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConvertCSV(t *testing.T) {
	input := writeTranscript(t, scenario)
	output := filepath.Join(t.TempDir(), "training_data.csv")

	c := NewConverter(logging.NewNopLogger(), nil, Options{Format: config.FormatCSV})
	res, err := c.Convert(context.Background(), input, output)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Games)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, "Training data saved to "+output, res.Message())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\r\n"))
	lines := strings.Split(strings.TrimSuffix(string(data), "\r\n"), "\r\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "board,move", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",26"))
	assert.True(t, strings.HasSuffix(lines[2], ",20"))
	assert.True(t, strings.HasSuffix(lines[3], ",37"))
}

func TestConvertIsIdempotent(t *testing.T) {
	input := writeTranscript(t, twoGames)
	dir := t.TempDir()
	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "b.csv")

	c := NewConverter(nil, nil, Options{})
	res1, err := c.Convert(context.Background(), input, first)
	require.NoError(t, err)
	res2, err := c.Convert(context.Background(), input, second)
	require.NoError(t, err)

	assert.Equal(t, res1.Stats, res2.Stats)
	assert.Equal(t, Stats{Games: 2, Rows: 12, SkippedResults: 1, SkippedMalformed: 1}, res1.Stats)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestConvertMsgpackMatchesCSVRows(t *testing.T) {
	input := writeTranscript(t, twoGames)
	output := filepath.Join(t.TempDir(), "training_data.bin")

	c := NewConverter(nil, nil, Options{Format: config.FormatMsgpack})
	res, err := c.Convert(context.Background(), input, output)
	require.NoError(t, err)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	rows, err := ReadMsgpack(f)
	require.NoError(t, err)
	require.Len(t, rows, res.Rows)

	assert.Equal(t, 37, rows[0].Move) // f5
}

func TestConvertMissingInput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.csv")
	m := metrics.NewCollector()

	_, err := NewConverter(nil, m, Options{}).Convert(context.Background(), filepath.Join(dir, "missing"), output)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "output must not be created when input is unreadable")
	assert.Equal(t, int64(1), m.Snapshot().FailedRuns)
}

func TestConvertWritesMetricsTextfile(t *testing.T) {
	input := writeTranscript(t, twoGames)
	dir := t.TempDir()
	promPath := filepath.Join(dir, "othello.prom")

	c := NewConverter(nil, metrics.NewCollector(), Options{MetricsTextfile: promPath})
	_, err := c.Convert(context.Background(), input, filepath.Join(dir, "out.csv"))
	require.NoError(t, err)

	data, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "othello_dataset_rows_total 12")
	assert.Contains(t, string(data), `othello_dataset_tokens_skipped_total{reason="result"} 1`)
}
