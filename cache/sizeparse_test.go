package cache

import (
	"errors"
	"testing"
)

func TestParseSizeDecimalAndBinaryUnits(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"3kb", 3000},
		{"3KiB", 3072},
		{"2.5mb", 2_500_000},
		{"1gb", 1_000_000_000},
		{"1gib", 1 << 30},
		{"512", 512},
		{"  10 mb  ", 10_000_000},
	}
	for _, c := range cases {
		got, err := ParseSize(c.in)
		if err != nil {
			t.Errorf("ParseSize(%q) error = %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseSizeRejectsEmptyString(t *testing.T) {
	_, err := ParseSize("")
	if !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("ParseSize(\"\") error = %v, want ErrInvalidSize", err)
	}
}

func TestParseSizeRejectsUnrecognizedUnit(t *testing.T) {
	_, err := ParseSize("5xb")
	if !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("ParseSize(\"5xb\") error = %v, want ErrInvalidSize", err)
	}
}

func TestParseSizeRejectsMissingLeadingNumber(t *testing.T) {
	_, err := ParseSize("kb")
	if !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("ParseSize(\"kb\") error = %v, want ErrInvalidSize", err)
	}
}

func TestParseSizeRejectsNegativeValue(t *testing.T) {
	_, err := ParseSize("-5mb")
	if !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("ParseSize(\"-5mb\") error = %v, want ErrInvalidSize", err)
	}
}
