package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/vmihailenco/msgpack"

	"github.com/dmmcquay/othello-dataset/internal/config"
	"github.com/dmmcquay/othello-dataset/internal/othello"
)

// Sink receives dataset rows in order.
type Sink interface {
	WriteRow(Row) error
	Close() error
}

// NewSink creates (or truncates) path and returns a sink for format.
func NewSink(path, format string) (Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	var sink Sink
	switch format {
	case config.FormatCSV, "":
		sink, err = NewCSVSink(f)
	case config.FormatMsgpack:
		sink, err = NewMsgpackSink(f)
	default:
		err = fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return sink, nil
}

// csvHeader is the first record of every CSV dataset.
var csvHeader = []string{"board", "move"}

// CSVSink writes rows as "board,move" records terminated by CRLF. The board
// field holds the 64 cell values separated by single spaces.
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVSink writes the header to w and returns the sink. If w is an
// io.Closer it is closed by Close.
func NewCSVSink(w io.Writer) (*CSVSink, error) {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	s := &CSVSink{w: cw}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	if err := s.w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write dataset header: %w", err)
	}
	return s, nil
}

func (s *CSVSink) WriteRow(r Row) error {
	if err := s.w.Write([]string{FormatBoard(r.Board), strconv.Itoa(r.Move)}); err != nil {
		return fmt.Errorf("failed to write dataset row: %w", err)
	}
	return nil
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to flush dataset: %w", err)
	}
	return nil
}

// FormatBoard renders a flattened board as space separated digits.
func FormatBoard(cells [othello.Cells]othello.Cell) string {
	var buf bytes.Buffer
	buf.Grow(2 * othello.Cells)
	for i, c := range cells {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(strconv.Itoa(int(c)))
	}
	return buf.String()
}

// msgpackMagic starts every msgpack dataset file.
var msgpackMagic = []byte("ODS1")

type msgpackRow struct {
	Board []byte `msgpack:"b"`
	Move  int    `msgpack:"m"`
}

// MsgpackSink writes a magic header followed by a stream of msgpack
// encoded rows.
type MsgpackSink struct {
	buf    *bufio.Writer
	enc    *msgpack.Encoder
	closer io.Closer
}

// NewMsgpackSink writes the magic header to w and returns the sink.
func NewMsgpackSink(w io.Writer) (*MsgpackSink, error) {
	buf := bufio.NewWriter(w)
	if _, err := buf.Write(msgpackMagic); err != nil {
		return nil, fmt.Errorf("failed to write dataset header: %w", err)
	}
	s := &MsgpackSink{buf: buf, enc: msgpack.NewEncoder(buf)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

func (s *MsgpackSink) WriteRow(r Row) error {
	cells := make([]byte, othello.Cells)
	for i, c := range r.Board {
		cells[i] = byte(c)
	}
	if err := s.enc.Encode(msgpackRow{Board: cells, Move: r.Move}); err != nil {
		return fmt.Errorf("failed to write dataset row: %w", err)
	}
	return nil
}

func (s *MsgpackSink) Close() error {
	err := s.buf.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to flush dataset: %w", err)
	}
	return nil
}

// ReadMsgpack decodes a dataset written by MsgpackSink.
func ReadMsgpack(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(msgpackMagic))
	if _, err := io.ReadFull(br, magic); err != nil || !bytes.Equal(magic, msgpackMagic) {
		return nil, fmt.Errorf("not a msgpack dataset")
	}

	dec := msgpack.NewDecoder(br)
	var rows []Row
	for {
		var mr msgpackRow
		err := dec.Decode(&mr)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid dataset row %d: %w", len(rows), err)
		}
		if len(mr.Board) != othello.Cells {
			return nil, fmt.Errorf("invalid dataset row %d: board has %d cells", len(rows), len(mr.Board))
		}
		var row Row
		for i, c := range mr.Board {
			row.Board[i] = othello.Cell(c)
		}
		row.Move = mr.Move
		rows = append(rows, row)
	}
	return rows, nil
}
