// Package encoding provides text encoding utilities for collision file string tables.
package encoding

import (
	"bytes"
	"errors"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// ErrNoTerminator is returned when a null-terminated string runs off the end of its buffer.
var ErrNoTerminator = errors.New("string has no null terminator")

// ShiftJISToUTF8 converts Shift-JIS encoded bytes to a UTF-8 string.
// Returns the original bytes as a string if conversion fails.
func ShiftJISToUTF8(data []byte) string {
	decoder := japanese.ShiftJIS.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToShiftJIS converts a UTF-8 string to Shift-JIS encoded bytes.
// Unlike the decode direction this reports an error, since silently writing
// UTF-8 into a Shift-JIS string table corrupts the file for the game.
func UTF8ToShiftJIS(s string) ([]byte, error) {
	encoder := japanese.ShiftJIS.NewEncoder()
	result, _, err := transform.Bytes(encoder, []byte(s))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CString returns the bytes from offset up to (not including) the next null byte.
func CString(data []byte, offset int) ([]byte, error) {
	if offset < 0 || offset >= len(data) {
		return nil, ErrNoTerminator
	}
	end := bytes.IndexByte(data[offset:], 0)
	if end < 0 {
		return nil, ErrNoTerminator
	}
	return data[offset : offset+end], nil
}
