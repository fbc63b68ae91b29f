package model

import (
	"path/filepath"
	"strings"
)

// File extensions
const (
	// ExtTXT is the GTFS source file extension
	ExtTXT = ".txt"
	// ExtGZ is the gzip compression extension
	ExtGZ = ".gz"
	// ExtBZ2 is the bzip2 compression extension
	ExtBZ2 = ".bz2"
	// ExtXZ is the xz compression extension
	ExtXZ = ".xz"
	// ExtZSTD is the zstd compression extension
	ExtZSTD = ".zst"
)

// CompressionType represents the compression type of a source file
type CompressionType int

const (
	// CompressionNone represents no compression
	CompressionNone CompressionType = iota
	// CompressionGZ represents gzip compression
	CompressionGZ
	// CompressionBZ2 represents bzip2 compression
	CompressionBZ2
	// CompressionXZ represents xz compression
	CompressionXZ
	// CompressionZSTD represents zstd compression
	CompressionZSTD
)

// SupportedCompressions lists compression types in lookup order.
// Plain text comes first so an uncompressed file always wins.
var SupportedCompressions = []CompressionType{
	CompressionNone,
	CompressionGZ,
	CompressionBZ2,
	CompressionXZ,
	CompressionZSTD,
}

// String returns the string representation of CompressionType
func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGZ:
		return "gz"
	case CompressionBZ2:
		return "bz2"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file extension for the compression type
func (c CompressionType) Extension() string {
	switch c {
	case CompressionNone:
		return ""
	case CompressionGZ:
		return ExtGZ
	case CompressionBZ2:
		return ExtBZ2
	case CompressionXZ:
		return ExtXZ
	case CompressionZSTD:
		return ExtZSTD
	default:
		return ""
	}
}

// DetectCompressionType detects the compression type from a file path
func DetectCompressionType(path string) CompressionType {
	path = strings.ToLower(path)

	switch {
	case strings.HasSuffix(path, ExtGZ):
		return CompressionGZ
	case strings.HasSuffix(path, ExtBZ2):
		return CompressionBZ2
	case strings.HasSuffix(path, ExtXZ):
		return CompressionXZ
	case strings.HasSuffix(path, ExtZSTD):
		return CompressionZSTD
	default:
		return CompressionNone
	}
}

// SourceFile is the resolved location of a table's source file inside a feed.
type SourceFile struct {
	// Path is the full path of the file on disk.
	Path string
	// Table is the table the file feeds.
	Table string
	// Compression is derived from the file extension.
	Compression CompressionType
	// Size is the on-disk size in bytes.
	Size int64
}

// NewSourceFile creates a SourceFile for path.
func NewSourceFile(path, table string, size int64) SourceFile {
	return SourceFile{
		Path:        path,
		Table:       table,
		Compression: DetectCompressionType(path),
		Size:        size,
	}
}

// Name returns the base name recorded in issues and file info,
// which is always the uncompressed name, e.g. "stops.txt".
func (f SourceFile) Name() string {
	return f.Table + ExtTXT
}

// BaseName returns the actual base name on disk, e.g. "stops.txt.gz".
func (f SourceFile) BaseName() string {
	return filepath.Base(f.Path)
}

// IsCompressed returns true if file is compressed
func (f SourceFile) IsCompressed() bool {
	return f.Compression != CompressionNone
}

// CandidatePaths returns the paths probed for table in feedDir, in order.
func CandidatePaths(feedDir, table string) []string {
	base := filepath.Join(feedDir, table+ExtTXT)
	paths := make([]string, 0, len(SupportedCompressions))
	for _, c := range SupportedCompressions {
		paths = append(paths, base+c.Extension())
	}
	return paths
}
