// Package pvs answers leaf-to-leaf potential visibility queries.
package pvs

import (
	"errors"
	"fmt"

	"github.com/gekko3d/bsplight/bsp"
)

var ErrTruncated = errors.New("pvs: compressed row truncated")

// Table is a full visibility matrix: one decompressed row per leaf. Leaf 0
// is the solid leaf, so bit k of a row describes leaf k+1.
type Table struct {
	rows     [][]byte
	rowBytes int
	hasData  bool
}

// RowBytes is the decompressed row size for a level with numLeafs leafs.
func RowBytes(numLeafs int) int {
	if numLeafs <= 1 {
		return 0
	}
	return (numLeafs - 1 + 7) / 8
}

// Decompress expands one run-length encoded row: non-zero bytes are copied,
// a zero byte is followed by the number of zero bytes it stands for.
func Decompress(src []byte, rowBytes int) ([]byte, error) {
	out := make([]byte, rowBytes)
	n, pos := 0, 0
	for n < rowBytes {
		if pos >= len(src) {
			return nil, ErrTruncated
		}
		if b := src[pos]; b != 0 {
			out[n] = b
			n++
			pos++
			continue
		}
		if pos+1 >= len(src) {
			return nil, ErrTruncated
		}
		n += int(src[pos+1])
		pos += 2
	}
	return out, nil
}

// Empty returns a table with no visibility data.
func Empty(numLeafs int) *Table {
	return &Table{rows: make([][]byte, numLeafs), rowBytes: RowBytes(numLeafs)}
}

// Build decompresses every leaf's row from visdata. Leafs without a row
// keep an all-zero row.
func Build(leafs []bsp.Leaf, visdata []byte) (*Table, error) {
	t := Empty(len(leafs))
	for i, leaf := range leafs {
		if leaf.VisOffset < 0 {
			t.rows[i] = make([]byte, t.rowBytes)
			continue
		}
		if int(leaf.VisOffset) >= len(visdata) {
			return nil, fmt.Errorf("leaf %d: vis offset %d outside %d bytes of visdata", i, leaf.VisOffset, len(visdata))
		}
		row, err := Decompress(visdata[leaf.VisOffset:], t.rowBytes)
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", i, err)
		}
		t.rows[i] = row
		t.hasData = true
	}
	return t, nil
}

// FromRows builds a table from already decompressed rows.
func FromRows(rows [][]byte) *Table {
	t := Empty(len(rows))
	for i, r := range rows {
		row := make([]byte, t.rowBytes)
		copy(row, r)
		t.rows[i] = row
		t.hasData = true
	}
	return t
}

func (t *Table) HasData() bool { return t != nil && t.hasData }

func (t *Table) NumLeafs() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// IsVisible reports whether leaf to is potentially visible from leaf from.
// The relation is directed. Without PVS data only a leaf sees itself.
func (t *Table) IsVisible(from, to int) bool {
	if from == to {
		return true
	}
	if !t.HasData() || from < 0 || from >= len(t.rows) || to < 1 || to >= len(t.rows) {
		return false
	}
	bit := to - 1
	row := t.rows[from]
	if bit>>3 >= len(row) {
		return false
	}
	return row[bit>>3]&(1<<(bit&7)) != 0
}
