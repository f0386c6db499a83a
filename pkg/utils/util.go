package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// DedupKey hashes the identifying parts of a notification into a stable key.
// Parts are length-prefixed so ("ab","c") and ("a","bc") never collide.
func DedupKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s|", len(p), p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FormatMinuteRange renders an arrival window such as "4–6 mins".
func FormatMinuteRange(lower, upper int) string {
	if lower == upper {
		return fmt.Sprintf("%d %s", lower, pluralMinutes(lower))
	}
	return fmt.Sprintf("%d–%d %s", lower, upper, pluralMinutes(upper))
}

func pluralMinutes(n int) string {
	if n == 1 {
		return "min"
	}
	return "mins"
}

// WholeMinutes truncates d to whole minutes, never below zero.
func WholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// CeilMinutes rounds d up to whole minutes.
func CeilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	m := int(d / time.Minute)
	if d%time.Minute != 0 {
		m++
	}
	return m
}

// NormalizeID trims whitespace around identifiers taken from requests.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}
