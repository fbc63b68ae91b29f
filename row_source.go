package gtfssql

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"

	"github.com/transitfeeds/gtfssql/domain/model"
)

// ErrEmptyFile indicates a source file without even a header record
var ErrEmptyFile = errors.New("gtfssql: empty source file")

// RowError reports a single record the tokenizer could not read.
// The source stays usable and the next record can be read.
type RowError struct {
	Line int
	Err  error
}

// Error implements error
func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying tokenizer error
func (e *RowError) Unwrap() error {
	return e.Err
}

// RowSource yields the header and the data rows of one source file, decoded
// from the given charset into UTF-8 and split on the given delimiter.
type RowSource struct {
	file       model.SourceFile
	charset    Charset
	reader     *csv.Reader
	cleanup    func() error
	header     model.Header
	headerRead bool
	line       int
	rows       int
}

// DetectFileCharset samples the head of src (after decompression) and returns its charset.
func DetectFileCharset(src model.SourceFile, detector *EncodingDetector) (Charset, error) {
	reader, cleanup, err := openSourceReader(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Charset{}, fmt.Errorf("%w: %s", ErrFileNotFound, src.Path)
		}
		return Charset{}, err
	}
	defer func() {
		_ = cleanup() // read-only handle, nothing to flush
	}()
	return detector.DetectReader(reader), nil
}

// OpenRowSource opens src for streaming. It returns an error wrapping
// ErrFileNotFound when the file does not exist.
func OpenRowSource(src model.SourceFile, delimiter rune, charset Charset) (*RowSource, error) {
	reader, cleanup, err := openSourceReader(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, src.Path)
		}
		return nil, err
	}
	return newRowSource(src, reader, cleanup, delimiter, charset), nil
}

// newRowSource builds a RowSource over an already opened stream.
func newRowSource(src model.SourceFile, r io.Reader, cleanup func() error, delimiter rune, charset Charset) *RowSource {
	csvReader := csv.NewReader(NewDecodingReader(r, charset))
	csvReader.Comma = delimiter
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	if cleanup == nil {
		cleanup = func() error { return nil }
	}
	return &RowSource{
		file:    src,
		charset: charset,
		reader:  csvReader,
		cleanup: cleanup,
	}
}

// File returns the source file being read
func (s *RowSource) File() model.SourceFile {
	return s.file
}

// Charset returns the charset used for decoding
func (s *RowSource) Charset() Charset {
	return s.charset
}

// Line returns the line on which the most recently read record started.
func (s *RowSource) Line() int {
	return s.line
}

// RowsRead returns the number of data rows returned so far.
func (s *RowSource) RowsRead() int {
	return s.rows
}

// ReadHeader reads the header record. It must be called before Next and
// returns ErrEmptyFile when the file has no records at all.
func (s *RowSource) ReadHeader() (model.Header, error) {
	if s.headerRead {
		return s.header, nil
	}
	for {
		record, err := s.reader.Read()
		if err == io.EOF {
			return nil, ErrEmptyFile
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// An unreadable header is retried on the next record.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		s.line, _ = s.reader.FieldPos(0)
		s.header = model.NewHeader(record)
		s.headerRead = true
		return s.header, nil
	}
}

// Next returns the next data row. It returns io.EOF after the last row and a
// *RowError for a record the tokenizer rejected.
func (s *RowSource) Next() (model.Row, error) {
	if !s.headerRead {
		if _, err := s.ReadHeader(); err != nil {
			return nil, err
		}
	}

	record, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		s.line = parseErr.StartLine
		return nil, &RowError{Line: parseErr.StartLine, Err: parseErr.Err}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.file.Name(), err)
	}

	s.line, _ = s.reader.FieldPos(0)
	s.rows++
	return model.NewRow(record), nil
}

// All returns the remaining rows as a lazy sequence. A *RowError is yielded
// and iteration continues; any other error is yielded last.
func (s *RowSource) All() iter.Seq2[model.Row, error] {
	return func(yield func(model.Row, error) bool) {
		for {
			row, err := s.Next()
			if err == io.EOF {
				return
			}
			var rowErr *RowError
			if err != nil && !errors.As(err, &rowErr) {
				yield(nil, err)
				return
			}
			if !yield(row, err) {
				return
			}
		}
	}
}

// Close releases the file handle and the decompressor.
func (s *RowSource) Close() error {
	return s.cleanup()
}
