// Package shortcode derives short codes from database ids.
//
// Generated codes are the base62 form of the row id plus a trailing marker
// character. The marker is not a base62 symbol and is rejected in
// user-desired codes, so the generated and user-chosen code spaces can
// never collide.
package shortcode

import (
	"errors"
	"strings"
)

// Alphabet order matters: digits, then lowercase, then uppercase.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = uint64(len(alphabet))

// Marker terminates every generated code and is forbidden in desired codes.
const Marker = "~"

var ErrMarkerInDesiredCode = errors.New("desired short code must not contain the ~ character")

// Encode converts a non-negative id to its base62 representation,
// most-significant digit first. Encode(0) is "0", never the empty string.
func Encode(id uint64) string {
	if id == 0 {
		return string(alphabet[0])
	}

	buf := make([]byte, 0, 11) // 62^11 > MaxUint64
	for id > 0 {
		buf = append(buf, alphabet[id%base])
		id /= base
	}

	// Built least-significant first; reverse in place.
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// Generate returns the short code for a row id. Injective over ids because
// Encode is, and disjoint from desired codes because of the marker.
func Generate(id uint64) string {
	return Encode(id) + Marker
}

// ValidateDesired rejects user-supplied codes that trespass on the
// generated code space.
func ValidateDesired(code string) error {
	if strings.Contains(code, Marker) {
		return ErrMarkerInDesiredCode
	}
	return nil
}
