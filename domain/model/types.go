package model

// Header is the first record of a source file.
type Header []string

// NewHeader create new Header.
func NewHeader(h []string) Header {
	return Header(h)
}

// Equal compare Header.
func (h Header) Equal(h2 Header) bool {
	if len(h) != len(h2) {
		return false
	}
	for i, v := range h {
		if v != h2[i] {
			return false
		}
	}
	return true
}

// Row is one data record of a source file. Positions follow the file header,
// and the field count may differ from the header's on malformed input.
type Row []string

// NewRow create new Row.
func NewRow(r []string) Row {
	return Row(r)
}

// Field returns the value at position i, or false when i is out of range.
func (r Row) Field(i int) (string, bool) {
	if i < 0 || i >= len(r) {
		return "", false
	}
	return r[i], true
}

// Equal compare Row.
func (r Row) Equal(r2 Row) bool {
	if len(r) != len(r2) {
		return false
	}
	for i, v := range r {
		if v != r2[i] {
			return false
		}
	}
	return true
}
