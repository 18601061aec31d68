// Package encoding converts the EUC-KR strings stored in Ragnarok Online model files.
package encoding

import (
	"bytes"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// EUCKRToUTF8 converts EUC-KR encoded bytes to UTF-8.
// Returns the input unchanged if it does not decode.
func EUCKRToUTF8(data []byte) string {
	result, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// DecodeName decodes a fixed-size, NUL-terminated EUC-KR name field.
func DecodeName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return EUCKRToUTF8(field)
}

// EncodeName encodes s as a fixed-size EUC-KR name field padded with NUL
// bytes. Names longer than size are truncated.
func EncodeName(s string, size int) []byte {
	field := make([]byte, size)
	encoded, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		encoded = []byte(s)
	}
	copy(field, encoded)
	return field
}
