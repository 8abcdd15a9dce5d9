package transcript

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCharset is assumed when ReadOptions.Charset is empty.
const DefaultCharset = "utf-8"

// ReadOptions controls how a transcript file is decoded.
type ReadOptions struct {
	// Charset names the text encoding of the file, e.g. "utf-8" or
	// "windows-1252". A byte order mark in the file takes precedence.
	Charset string
}

// Source is a transcript loaded into memory.
type Source struct {
	Path     string
	Text     string
	DiskSize int64 // bytes on disk, before decompression
}

// ReadFile loads a transcript. Paths ending in ".bz2" are decompressed first.
func ReadFile(path string, opts ReadOptions) (*Source, error) {
	enc, err := lookupCharset(opts.Charset)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat transcript: %w", err)
	}

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".bz2") {
		bz, err := bzip2.NewReader(f, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open bzip2 stream: %w", err)
		}
		defer bz.Close()
		r = bz
	}

	text, err := Decode(r, enc)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript %s: %w", path, err)
	}

	return &Source{
		Path:     path,
		Text:     text,
		DiskSize: info.Size(),
	}, nil
}

// Decode reads all of r and converts it from enc to UTF-8, honouring a
// leading byte order mark.
func Decode(r io.Reader, enc encoding.Encoding) (string, error) {
	if enc == nil {
		enc = unicode.UTF8
	}
	data, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func lookupCharset(name string) (encoding.Encoding, error) {
	if name == "" {
		name = DefaultCharset
	}
	enc, err := ianaindex.MIME.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", name)
	}
	return enc, nil
}
