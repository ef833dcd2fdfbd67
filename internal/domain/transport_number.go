package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTransportNumber is returned when an invalid transport number is provided
var ErrInvalidTransportNumber = errors.New("invalid transport number")

// Transport numbers look like 26TS000042: two-digit year, the literal TS
// marker, then a six-digit zero-padded sequence.
var transportNumberPattern = regexp.MustCompile(`^(\d{2})TS(\d{6})$`)

// TransportNumber represents an immutable transport number value object
type TransportNumber struct {
	value    string
	year     string
	sequence int
}

// NewTransportNumber creates a TransportNumber value object with validation.
func NewTransportNumber(value string) (TransportNumber, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return TransportNumber{}, errors.New("transport number cannot be empty")
	}

	m := transportNumberPattern.FindStringSubmatch(value)
	if m == nil {
		return TransportNumber{}, ErrInvalidTransportNumber
	}

	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return TransportNumber{}, ErrInvalidTransportNumber
	}

	return TransportNumber{value: value, year: m[1], sequence: seq}, nil
}

// MintTransportNumber builds a transport number for the given year and sequence.
func MintTransportNumber(now time.Time, sequence int) (TransportNumber, error) {
	if sequence < 1 || sequence > 999999 {
		return TransportNumber{}, fmt.Errorf("transport number sequence out of range: %d", sequence)
	}
	return NewTransportNumber(fmt.Sprintf("%s%06d", YearPrefix(now), sequence))
}

// YearPrefix returns the mint prefix for the given time, e.g. "26TS".
func YearPrefix(now time.Time) string {
	return now.Format("06") + "TS"
}

// NextTransportNumber mints the next number in sequence: one past the highest
// current-year sequence found in existing. Numbers from other years, blanks,
// and malformed entries are ignored. Starts at 1 when nothing matches.
func NextTransportNumber(existing []string, now time.Time) (TransportNumber, error) {
	max := 0
	yearDigits := now.Format("06")
	for _, raw := range existing {
		tn, err := NewTransportNumber(raw)
		if err != nil {
			continue
		}
		if tn.year != yearDigits {
			continue
		}
		if tn.sequence > max {
			max = tn.sequence
		}
	}
	return MintTransportNumber(now, max+1)
}

// Value returns the transport number value
func (tn TransportNumber) Value() string {
	return tn.value
}

// Sequence returns the numeric suffix of the transport number
func (tn TransportNumber) Sequence() int {
	return tn.sequence
}

// String returns the string representation of the transport number
func (tn TransportNumber) String() string {
	return tn.value
}

// Equals checks if two transport numbers are equal
func (tn TransportNumber) Equals(other TransportNumber) bool {
	return tn.value == other.value
}

// MarshalText implements encoding.TextMarshaler for JSON/BSON serialization
func (tn TransportNumber) MarshalText() ([]byte, error) {
	return []byte(tn.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON/BSON deserialization
func (tn *TransportNumber) UnmarshalText(text []byte) error {
	parsed, err := NewTransportNumber(string(text))
	if err != nil {
		return err
	}
	*tn = parsed
	return nil
}
