package utils

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-indexed page request.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// ParsePage turns raw query values into a page, never failing: malformed or zero
// input falls back to defaults, negatives clamp to 1 and the size is capped at MaxPageSize.
func ParsePage(pageStr, sizeStr string) Page {
	return NewPage(atoiOr(pageStr, 1), atoiOr(sizeStr, DefaultPageSize))
}

// NewPage clamps size to [1,MaxPageSize] and number to [1,n] where n is the
// largest page whose Offset still fits in an int.
func NewPage(number, size int) Page {
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if number < 1 {
		number = 1
	}
	if number-1 > math.MaxInt/size {
		number = math.MaxInt/size + 1
	}
	return Page{Number: number, Size: size}
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n == 0 {
		return def
	}
	return n
}
