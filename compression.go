package gtfssql

import (
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/transitfeeds/gtfssql/domain/model"
)

// decompressor wraps r with the decoder for ct. Closing the result releases
// the decoder only, never r.
func decompressor(ct model.CompressionType, r io.Reader) (io.ReadCloser, error) {
	switch ct {
	case model.CompressionNone:
		return io.NopCloser(r), nil
	case model.CompressionGZ:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, nil
	case model.CompressionBZ2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case model.CompressionXZ:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return io.NopCloser(xzr), nil
	case model.CompressionZSTD:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return decoder.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported compression type for reading: %v", ct)
	}
}

// sourceReader is a decompressed view of a feed file
type sourceReader struct {
	io.ReadCloser
	file *os.File
}

// Close releases the decoder, then the file.
func (s *sourceReader) Close() error {
	return errors.Join(s.ReadCloser.Close(), s.file.Close())
}

// openSourceReader opens src and decompresses it according to its extension.
// The returned cleanup closes both the decoder and the file.
func openSourceReader(src model.SourceFile) (io.Reader, func() error, error) {
	file, err := os.Open(src.Path) //nolint:gosec // Feed paths are supplied by the caller
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	rc, err := decompressor(src.Compression, file)
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	sr := &sourceReader{ReadCloser: rc, file: file}
	return sr, sr.Close, nil
}
