package ticklake

import (
	"compress/gzip"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Decompressor unwraps the compression of a mirrored dataset file.
// Dataset objects ship compressed (.gz historically, .zst for newer
// datasets); decompressors are pluggable and orthogonal to record codecs.
type Decompressor interface {
	// Name returns the decompressor identifier ("gzip", "zstd", "none").
	Name() string

	// Extension returns the file extension it handles (".gz", ".zst", "").
	Extension() string

	// Decompress wraps a reader with decompression.
	Decompress(r io.Reader) (io.ReadCloser, error)
}

// -----------------------------------------------------------------------------
// Gzip
// -----------------------------------------------------------------------------

type gzipDecompressor struct{}

// NewGzipDecompressor handles the .csv.gz objects most datasets ship.
func NewGzipDecompressor() Decompressor {
	return &gzipDecompressor{}
}

func (g *gzipDecompressor) Name() string      { return "gzip" }
func (g *gzipDecompressor) Extension() string { return ".gz" }

func (g *gzipDecompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// -----------------------------------------------------------------------------
// Zstd
// -----------------------------------------------------------------------------

type zstdDecompressor struct{}

// NewZstdDecompressor handles Zstandard-compressed objects.
func NewZstdDecompressor() Decompressor {
	return &zstdDecompressor{}
}

func (z *zstdDecompressor) Name() string      { return "zstd" }
func (z *zstdDecompressor) Extension() string { return ".zst" }

func (z *zstdDecompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// -----------------------------------------------------------------------------
// NoOp
// -----------------------------------------------------------------------------

type noopDecompressor struct{}

// NewNoOpDecompressor passes data through unchanged, for uncompressed
// objects such as parquet files with internal compression.
func NewNoOpDecompressor() Decompressor {
	return &noopDecompressor{}
}

func (n *noopDecompressor) Name() string      { return "none" }
func (n *noopDecompressor) Extension() string { return "" }

func (n *noopDecompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// DecompressorForPath picks a decompressor from a file path's extension.
func DecompressorForPath(path string) Decompressor {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return NewGzipDecompressor()
	case strings.HasSuffix(path, ".zst"):
		return NewZstdDecompressor()
	default:
		return NewNoOpDecompressor()
	}
}
