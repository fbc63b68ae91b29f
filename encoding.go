package gtfssql

import (
	"bytes"
	"io"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// Encoding detection constants
const (
	// CharsetSampleSize is the maximum number of leading bytes inspected per file
	CharsetSampleSize = 4096
	// charsetChunkSize is how many more bytes the sniffer sees on each attempt
	charsetChunkSize = 1024
	// charsetConfidentScore ends sampling before the whole prefix is used
	charsetConfidentScore = 100
)

// Charset is a detected character encoding.
type Charset struct {
	// Name is the charset label, e.g. "UTF-8" or "windows-1252".
	Name string
	// Encoding decodes the charset into UTF-8.
	Encoding encoding.Encoding
	// Confidence is the sniffer score between 0 and 100.
	Confidence int
	// Detected is false when Name is the fallback charset.
	Detected bool
}

// FallbackCharset is used when no charset can be determined. Every byte
// sequence is valid ISO-8859-1, so decoding never fails.
var FallbackCharset = Charset{
	Name:     "ISO-8859-1",
	Encoding: charmap.ISO8859_1,
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// charsetAliases maps sniffer labels that neither index knows.
var charsetAliases = map[string]string{
	"GB-18030": "GB18030",
}

// EncodingDetector infers the character encoding of a file from its first bytes.
type EncodingDetector struct {
	sampleSize int
	chunkSize  int
	sniffer    *chardet.Detector
}

// NewEncodingDetector creates a detector sampling at most CharsetSampleSize bytes.
func NewEncodingDetector() *EncodingDetector {
	return &EncodingDetector{
		sampleSize: CharsetSampleSize,
		chunkSize:  charsetChunkSize,
		sniffer:    chardet.NewTextDetector(),
	}
}

// DetectReader reads up to the sample size from r and detects its charset.
// Read errors end sampling early; whatever was read is still inspected.
func (d *EncodingDetector) DetectReader(r io.Reader) Charset {
	sample := make([]byte, d.sampleSize)
	n, err := io.ReadFull(r, sample)
	if err != nil && n == 0 {
		return FallbackCharset
	}
	return d.Detect(sample[:n])
}

// Detect infers the charset of sample. Byte order marks win, then pure ASCII is
// reported as UTF-8, then the statistical sniffer is fed growing prefixes until
// it is confident or the sample is exhausted. An undetermined or unsupported
// result yields FallbackCharset.
func (d *EncodingDetector) Detect(sample []byte) Charset {
	if len(sample) > d.sampleSize {
		sample = sample[:d.sampleSize]
	}
	if len(sample) == 0 {
		return FallbackCharset
	}
	if cs, ok := detectBOM(sample); ok {
		return cs
	}
	if isASCII(sample) {
		return Charset{Name: "UTF-8", Encoding: unicode.UTF8, Confidence: charsetConfidentScore, Detected: true}
	}

	var best *chardet.Result
	for end := min(d.chunkSize, len(sample)); ; end = min(end+d.chunkSize, len(sample)) {
		result, err := d.sniffer.DetectBest(sample[:end])
		if err == nil && result != nil {
			best = result
			if result.Confidence >= charsetConfidentScore {
				break
			}
		}
		if end == len(sample) {
			break
		}
	}
	if best == nil {
		return FallbackCharset
	}

	enc, ok := lookupEncoding(best.Charset)
	if !ok {
		return FallbackCharset
	}
	return Charset{Name: best.Charset, Encoding: enc, Confidence: best.Confidence, Detected: true}
}

// NewDecodingReader returns a reader producing UTF-8 from r. A leading byte order
// mark switches decoding to the matching Unicode form and is dropped.
func NewDecodingReader(r io.Reader, cs Charset) io.Reader {
	enc := cs.Encoding
	if enc == nil {
		enc = FallbackCharset.Encoding
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder()))
}

// detectBOM recognizes Unicode byte order marks. UTF-32 is checked before
// UTF-16 since the UTF-32LE mark starts with the UTF-16LE one.
func detectBOM(sample []byte) (Charset, bool) {
	switch {
	case bytes.HasPrefix(sample, bomUTF8):
		return Charset{Name: "UTF-8", Encoding: unicode.UTF8BOM, Confidence: charsetConfidentScore, Detected: true}, true
	case bytes.HasPrefix(sample, bomUTF32LE):
		return Charset{Name: "UTF-32LE", Encoding: utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM), Confidence: charsetConfidentScore, Detected: true}, true
	case bytes.HasPrefix(sample, bomUTF32BE):
		return Charset{Name: "UTF-32BE", Encoding: utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM), Confidence: charsetConfidentScore, Detected: true}, true
	case bytes.HasPrefix(sample, bomUTF16LE):
		return Charset{Name: "UTF-16LE", Encoding: unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), Confidence: charsetConfidentScore, Detected: true}, true
	case bytes.HasPrefix(sample, bomUTF16BE):
		return Charset{Name: "UTF-16BE", Encoding: unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), Confidence: charsetConfidentScore, Detected: true}, true
	default:
		return Charset{}, false
	}
}

// lookupEncoding resolves a charset label through the IANA registry first and
// the WHATWG index second. ianaindex returns a nil Encoding without error for
// registered but unsupported charsets, which counts as not found.
func lookupEncoding(name string) (encoding.Encoding, bool) {
	if alias, ok := charsetAliases[strings.ToUpper(name)]; ok {
		name = alias
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, true
	}
	if enc, err := htmlindex.Get(name); err == nil && enc != nil {
		return enc, true
	}
	return nil, false
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
