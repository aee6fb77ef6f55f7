// Package format masks raw keystroke input into the national id and birth date shapes.
// Both functions are re-applied to the whole field value on every change, so they
// are total and idempotent on their own output.
package format

import "strings"

const (
	nationalIDMaxDigits = 13
	nationalIDMaxLen    = 25
	birthDateMaxDigits  = 8
	birthDateMaxLen     = 10
	separator           = '-'
)

// NationalID formats input as DDD-DDDDDD-DDDD followed by any letters, e.g. 365-130995-0002H.
// Only the first 13 digits are kept, letters are unbounded until the 25 characters cap.
func NationalID(s string) string {
	digits, letters := split(s)
	if len(digits) > nationalIDMaxDigits {
		digits = digits[:nationalIDMaxDigits]
	}

	var b strings.Builder
	b.Grow(len(digits) + 2 + len(letters))
	for i := 0; i < len(digits); i++ {
		if i == 3 || i == 9 {
			b.WriteByte(separator)
		}
		b.WriteByte(digits[i])
	}
	b.WriteString(letters)

	return truncate(b.String(), nationalIDMaxLen)
}

// BirthDate formats input as YYYY-MM-DD
func BirthDate(s string) string {
	digits, _ := split(s)
	if len(digits) > birthDateMaxDigits {
		digits = digits[:birthDateMaxDigits]
	}

	var b strings.Builder
	b.Grow(len(digits) + 2)
	for i := 0; i < len(digits); i++ {
		if i == 4 || i == 6 {
			b.WriteByte(separator)
		}
		b.WriteByte(digits[i])
	}

	return truncate(b.String(), birthDateMaxLen)
}

// split extracts ASCII digits and ASCII letters preserving their order
func split(s string) (string, string) {
	var digits, letters strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits.WriteByte(c)
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			letters.WriteByte(c)
		}
	}
	return digits.String(), letters.String()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
