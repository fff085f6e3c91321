// Package bytesize parses human-readable byte size strings such as
// "512kb" or "4mb" into byte counts.
package bytesize

import (
	"errors"
	"strconv"
	"strings"
)

type Size uint64

const (
	B  Size = 1
	KB      = 1024 * B
	MB      = 1024 * KB
	GB      = 1024 * MB
	TB      = 1024 * GB
)

var (
	ErrInvalidSizeFormat   = errors.New("invalid size format")
	ErrInvalidNumberFormat = errors.New("invalid number format")
	ErrUnknownUnit         = errors.New("unknown unit")
)

var units = map[string]Size{
	"b":  B,
	"kb": KB,
	"mb": MB,
	"gb": GB,
	"tb": TB,
}

// ParseSize converts strings like "1kb", "10 mb", or "2gb" into a
// Size. Whitespace is ignored and units are case-insensitive. A bare
// number without a unit is rejected.
func ParseSize(s string) (Size, error) {
	s = strings.ToLower(strings.ReplaceAll(s, " ", ""))

	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	num, unit := s[:i], s[i:]

	if unit == "" {
		return 0, ErrInvalidSizeFormat
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, ErrInvalidNumberFormat
	}
	mult, ok := units[unit]
	if !ok {
		return 0, ErrUnknownUnit
	}
	return Size(n * float64(mult)), nil
}
