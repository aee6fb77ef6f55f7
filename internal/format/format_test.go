package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNationalID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "no separator up to 3 digits", input: "123", want: "123"},
		{name: "single separator", input: "1234", want: "123-4"},
		{name: "single separator up to 9 digits", input: "1234567", want: "123-4567"},
		{name: "nine digits", input: "123456789", want: "123-456789"},
		{name: "second separator after 9 digits", input: "1234567890", want: "123-456789-0"},
		{name: "twelve digits", input: "123456789012", want: "123-456789-012"},
		{name: "digits over 13 are dropped", input: "12345678901234567", want: "123-456789-0123"},
		{name: "trailing letter", input: "3651309950002H", want: "365-130995-0002H"},
		{name: "trailing word", input: "3651309950002Nicaragua", want: "365-130995-0002Nicaragua"},
		{name: "capped at 25 characters", input: "3651309950002ABCDEFGHIJKLMNOP", want: "365-130995-0002ABCDEFGHIJ"},
		{name: "punctuation stripped", input: "12-3a!b", want: "123ab"},
		{name: "letters moved after digits", input: "a1b2c3d4", want: "123-4abcd"},
		{name: "non ascii ignored", input: "ñ12é3", want: "123"},
		{name: "already formatted", input: "365-130995-0002H", want: "365-130995-0002H"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NationalID(tt.input))
		})
	}
}

func TestNationalIDStripsForeignCharacters(t *testing.T) {
	got := NationalID("12-3a!b")
	require.NotContains(t, got, "!", "punctuation must be stripped")
	require.NotContains(t, got, "-", "only inserted separators are allowed and 3 digits need none")
	require.Equal(t, "ab", strings.TrimLeft(got, "0123456789"), "letters must keep relative order")
}

func TestBirthDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "year only", input: "1990", want: "1990"},
		{name: "first separator", input: "19900", want: "1990-0"},
		{name: "year and month", input: "199001", want: "1990-01"},
		{name: "second separator", input: "1990011", want: "1990-01-1"},
		{name: "full date", input: "19900115", want: "1990-01-15"},
		{name: "extra digits dropped", input: "1990011599", want: "1990-01-15"},
		{name: "slashes replaced", input: "1990/01/15", want: "1990-01-15"},
		{name: "letters ignored", input: "abc", want: ""},
		{name: "already formatted", input: "1990-01-15", want: "1990-01-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BirthDate(tt.input)
			require.Equal(t, tt.want, got)
			require.LessOrEqual(t, len(got), birthDateMaxLen)
		})
	}
}

func TestFormattersAreIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"1",
		"12-3a!b",
		"3651309950002H",
		"3651309950002ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"99999999999999999999xyz",
		"19900115",
		"1990 01 15 23:59",
		"  0-0-0-0-0-0-0-0-0  ",
	}

	for _, in := range inputs {
		once := NationalID(in)
		require.Equal(t, once, NationalID(once), "national id formatting must be idempotent for %q", in)

		once = BirthDate(in)
		require.Equal(t, once, BirthDate(once), "birth date formatting must be idempotent for %q", in)
	}
}
