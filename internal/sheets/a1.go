package sheets

import (
	"strconv"
	"strings"
)

// ColumnName encodes a 0-based column index as spreadsheet letters:
// 0 -> "A", 25 -> "Z", 26 -> "AA", 701 -> "ZZ", 702 -> "AAA".
func ColumnName(index int) string {
	if index < 0 {
		return ""
	}
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append(b, byte('A'+(n-1)%26))
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// ColumnIndex decodes spreadsheet letters into a 0-based index, or -1 when s
// is not a column reference.
func ColumnIndex(s string) int {
	if s == "" {
		return -1
	}
	n := 0
	for _, r := range strings.ToUpper(s) {
		if r < 'A' || r > 'Z' {
			return -1
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1
}

// Range is the parsed anchor of an A1 range: which tab, and the top-left
// corner the values grid starts at.
type Range struct {
	Sheet    string // tab name as written, quotes kept; "" means the first sheet
	StartCol int    // 0-based
	StartRow int    // 1-based row of the header
}

// ParseRange parses "Sheet1!A:C", "'My Tab'!B3:F", "A2:C" or a bare tab
// name. Missing parts default to column A, row 1.
func ParseRange(a1 string) Range {
	r := Range{StartRow: 1}
	a1 = strings.TrimSpace(a1)

	ref := a1
	if i := strings.LastIndexByte(a1, '!'); i >= 0 {
		r.Sheet = a1[:i]
		ref = a1[i+1:]
	} else if !strings.Contains(a1, ":") {
		// A bare name without a colon addresses a whole tab.
		r.Sheet = a1
		return r
	}

	start := ref
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		start = ref[:i]
	}
	letters := strings.TrimRightFunc(start, func(c rune) bool { return c >= '0' && c <= '9' })
	digits := start[len(letters):]

	if col := ColumnIndex(letters); col >= 0 {
		r.StartCol = col
	}
	if n, err := strconv.Atoi(digits); err == nil && n > 0 {
		r.StartRow = n
	}
	return r
}

// Cell addresses a single cell by indices rather than by string splicing.
type Cell struct {
	Sheet  string
	Column int // 0-based
	Row    int // 1-based
}

// A1 renders the cell reference, prefixed with its tab when known.
func (c Cell) A1() string {
	ref := ColumnName(c.Column) + strconv.Itoa(c.Row)
	if c.Sheet == "" {
		return ref
	}
	return c.Sheet + "!" + ref
}

func (c Cell) String() string { return c.A1() }
