// Package uniuri generates random strings for CSRF tokens and OIDC nonces.
package uniuri

import (
	"crypto/rand"
)

// StdLen is the default length, about 95 bits of entropy with StdChars.
const StdLen = 16

// StdChars are the characters used by New and NewLen. All of them are safe in
// URLs, cookies and HTML attributes.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789") //nolint:gochecknoglobals

// New returns a random string of StdLen characters.
func New() string {
	return NewLenChars(StdLen, StdChars)
}

// NewLen returns a random string of length characters from StdChars.
func NewLen(length int) string {
	return NewLenChars(length, StdChars)
}

// NewLenChars returns a random string of length characters from chars, which
// must hold between 2 and 256 entries. Random bytes above the largest multiple
// of len(chars) are dropped so every character is equally likely.
// It panics when the system random source fails.
func NewLenChars(length int, chars []byte) string {
	if length <= 0 {
		return ""
	}

	n := len(chars)
	if n < 2 || n > 256 {
		panic("uniuri: charset must hold between 2 and 256 characters")
	}

	limit := 256 - 256%n // bytes >= limit would bias the result
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			panic("uniuri: reading random bytes: " + err.Error())
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, chars[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}

	return string(out)
}
