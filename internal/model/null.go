package model

import (
	"encoding/json"
	"strconv"
)

// NullLabel is how a null grouping key is displayed.
const NullLabel = "(none)"

// NullString is a string column value that may be missing.
// It is comparable and can be used as a map key.
type NullString struct {
	String string
	Valid  bool
}

// NewNullString returns a valid NullString.
func NewNullString(s string) NullString {
	return NullString{String: s, Valid: true}
}

// Label returns the value for display, or NullLabel when missing.
func (n NullString) Label() string {
	if !n.Valid {
		return NullLabel
	}
	return n.String
}

// Less orders valid values lexically and places null last.
func (n NullString) Less(other NullString) bool {
	if n.Valid != other.Valid {
		return n.Valid
	}
	return n.String < other.String
}

// MarshalJSON encodes a missing value as null.
func (n NullString) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.String)
}

// NullInt is an integer column value that may be missing.
type NullInt struct {
	Int   int
	Valid bool
}

// NewNullInt returns a valid NullInt.
func NewNullInt(i int) NullInt {
	return NullInt{Int: i, Valid: true}
}

// Label returns the value for display, or NullLabel when missing.
func (n NullInt) Label() string {
	if !n.Valid {
		return NullLabel
	}
	return strconv.Itoa(n.Int)
}

// Less orders valid values ascending and places null last.
func (n NullInt) Less(other NullInt) bool {
	if n.Valid != other.Valid {
		return n.Valid
	}
	return n.Int < other.Int
}

// MarshalJSON encodes a missing value as null.
func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(n.Int)), nil
}
