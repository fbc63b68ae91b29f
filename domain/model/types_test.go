package model

import (
	"testing"
)

func TestNewHeader(t *testing.T) {
	t.Parallel()

	headerSlice := []string{"stop_id", "stop_name", "stop_lat"}
	header := NewHeader(headerSlice)

	if len(header) != 3 {
		t.Errorf("expected length 3, got %d", len(header))
	}
	for i, expected := range headerSlice {
		if header[i] != expected {
			t.Errorf("expected %s at index %d, got %s", expected, i, header[i])
		}
	}
}

func TestHeader_Equal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header1  Header
		header2  Header
		expected bool
	}{
		{
			name:     "Equal headers",
			header1:  NewHeader([]string{"col1", "col2"}),
			header2:  NewHeader([]string{"col1", "col2"}),
			expected: true,
		},
		{
			name:     "Different length headers",
			header1:  NewHeader([]string{"col1", "col2"}),
			header2:  NewHeader([]string{"col1"}),
			expected: false,
		},
		{
			name:     "Different content headers",
			header1:  NewHeader([]string{"col1", "col2"}),
			header2:  NewHeader([]string{"col1", "col3"}),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.header1.Equal(tt.header2); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRow_Field(t *testing.T) {
	t.Parallel()

	row := NewRow([]string{"S1", "Main St"})

	if v, ok := row.Field(1); !ok || v != "Main St" {
		t.Errorf("Field(1) = %q, %v", v, ok)
	}
	if _, ok := row.Field(2); ok {
		t.Error("Field(2) must be out of range")
	}
	if _, ok := row.Field(-1); ok {
		t.Error("Field(-1) must be out of range")
	}
}

func TestRow_Equal(t *testing.T) {
	t.Parallel()

	a := NewRow([]string{"a", "b"})
	if !a.Equal(NewRow([]string{"a", "b"})) {
		t.Error("expected rows to be equal")
	}
	if a.Equal(NewRow([]string{"a"})) {
		t.Error("expected rows of different length to differ")
	}
}
