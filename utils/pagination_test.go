package utils

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePageClamps(t *testing.T) {
	cases := []struct {
		page, size string
		want       Page
	}{
		{"", "", Page{Number: 1, Size: DefaultPageSize}},
		{"3", "25", Page{Number: 3, Size: 25}},
		{"abc", "xyz", Page{Number: 1, Size: DefaultPageSize}},
		{"0", "0", Page{Number: 1, Size: DefaultPageSize}},
		{"-4", "-1", Page{Number: 1, Size: 1}},
		{"2", "1000", Page{Number: 2, Size: MaxPageSize}},
		{" 7 ", " 5 ", Page{Number: 7, Size: 5}},
		{"1.5", "10", Page{Number: 1, Size: 10}},
		{strconv.Itoa(math.MaxInt), "100", Page{Number: math.MaxInt/100 + 1, Size: 100}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParsePage(tc.page, tc.size), "page=%q size=%q", tc.page, tc.size)
	}
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, NewPage(1, 10).Offset())
	assert.Equal(t, 40, NewPage(3, 20).Offset())
	assert.Equal(t, 0, NewPage(-2, 10).Offset())
}

func TestHugePageNumberOffsetDoesNotOverflow(t *testing.T) {
	for _, size := range []int{1, 7, 10, MaxPageSize} {
		p := ParsePage(strconv.Itoa(math.MaxInt), strconv.Itoa(size))
		assert.Equal(t, size, p.Size)
		assert.Greater(t, p.Offset(), 0, "size=%d", size)
		assert.GreaterOrEqual(t, p.Offset(), math.MaxInt-size, "size=%d", size)
	}
}
