// Package ids generates prefixed, time-sortable identifiers such as
// "ord_1rK5iqX9bT2mQ7wZ4kLp".
package ids

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	timestampLength = 6
	randomLength    = 16
)

// Order is the prefix for order identifiers.
const Order = "ord"

// EncodeTimestamp encodes Unix seconds as a fixed-width base62 string so that
// IDs sort lexicographically by creation second.
func EncodeTimestamp(seconds int64) string {
	out := make([]byte, timestampLength)
	for i := timestampLength - 1; i >= 0; i-- {
		out[i] = alphabet[seconds%62]
		seconds /= 62
	}
	return string(out)
}

// randomString returns n uniformly distributed base62 characters.
// Bytes >= 248 are rejected since 248 is the largest multiple of 62 below 256.
func randomString(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	buf := make([]byte, n+n/4+1)
	for sb.Len() < n {
		if _, err := rand.Read(buf); err != nil {
			panic("ids: failed to read random bytes: " + err.Error())
		}
		for _, b := range buf {
			if b >= 248 {
				continue
			}
			sb.WriteByte(alphabet[b%62])
			if sb.Len() == n {
				break
			}
		}
	}
	return sb.String()
}

// New returns prefix_ followed by a timestamp and random suffix.
func New(prefix string) string {
	return NewAt(prefix, time.Now())
}

// NewAt is New with an explicit creation time.
func NewAt(prefix string, t time.Time) string {
	return prefix + "_" + EncodeTimestamp(t.Unix()) + randomString(randomLength)
}

// Validate checks that id was produced by New with the given prefix.
func Validate(prefix, id string) error {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	if !ok {
		return fmt.Errorf("id %q does not have prefix %q", id, prefix)
	}
	if len(rest) != timestampLength+randomLength {
		return fmt.Errorf("id %q has wrong length", id)
	}
	for _, c := range rest {
		if !strings.ContainsRune(alphabet, c) {
			return fmt.Errorf("id %q contains invalid character %q", id, c)
		}
	}
	return nil
}
