// Block pointers: sliding, boundary-checked tile access to matrices.
package tilegrid

import "fmt"

// Order names the axis order of a block pointer's parent matrix.
type Order int

const (
	// RowMajor: elements of a row are contiguous (column stride 1).
	RowMajor Order = iota
	// ColMajor: elements of a column are contiguous (row stride 1).
	ColMajor
)

// BlockPtr is a handle to a rectangular window into a larger matrix:
// the parent's shape and strides, the window's current offsets, and the
// window (block) shape. Load and Store are boundary checked, so a
// window may hang off any edge of the parent; out-of-bounds lanes read
// as zero and are dropped on store. Advance slides the window.
//
// BlockPtr has value semantics: Advance returns a moved copy, the
// K-loop of a tiled kernel keeps its own chain of windows, and
// concurrent grid units never share mutable state.
type BlockPtr struct {
	base      []float32
	rows, cols int
	strideRow  int
	strideCol  int
	offRow     int
	offCol     int
	blockRows  int
	blockCols  int
	order      Order
}

// MakeBlockPtr builds a block pointer over base, which must hold a
// rows×cols matrix laid out with the given strides. Offsets may start
// anywhere, including outside the parent.
func MakeBlockPtr(base DevicePtr, rows, cols, strideRow, strideCol, offRow, offCol, blockRows, blockCols int, order Order) (BlockPtr, error) {
	return makeBlockPtr(base.Float32(), rows, cols, strideRow, strideCol, offRow, offCol, blockRows, blockCols, order)
}

// MakeBlockPtrSlice is MakeBlockPtr over a host slice, used by kernels
// that already hold a typed view.
func MakeBlockPtrSlice(base []float32, rows, cols, strideRow, strideCol, offRow, offCol, blockRows, blockCols int, order Order) (BlockPtr, error) {
	return makeBlockPtr(base, rows, cols, strideRow, strideCol, offRow, offCol, blockRows, blockCols, order)
}

func makeBlockPtr(base []float32, rows, cols, strideRow, strideCol, offRow, offCol, blockRows, blockCols int, order Order) (BlockPtr, error) {
	const op = "MakeBlockPtr"
	if rows <= 0 || cols <= 0 {
		return BlockPtr{}, NewInvalidArgError(op, fmt.Sprintf("invalid parent shape %dx%d", rows, cols))
	}
	if blockRows <= 0 || blockCols <= 0 {
		return BlockPtr{}, NewInvalidArgError(op, fmt.Sprintf("invalid block shape %dx%d", blockRows, blockCols))
	}
	switch order {
	case RowMajor:
		if strideCol != 1 || strideRow < cols {
			return BlockPtr{}, NewInvalidArgError(op, fmt.Sprintf("strides (%d,%d) are not row-major for %d columns", strideRow, strideCol, cols))
		}
	case ColMajor:
		if strideRow != 1 || strideCol < rows {
			return BlockPtr{}, NewInvalidArgError(op, fmt.Sprintf("strides (%d,%d) are not column-major for %d rows", strideRow, strideCol, rows))
		}
	default:
		return BlockPtr{}, NewInvalidArgError(op, "unknown axis order")
	}
	// The parent must fit inside the backing slice.
	if need := (rows-1)*strideRow + (cols-1)*strideCol + 1; need > len(base) {
		return BlockPtr{}, NewInvalidArgError(op, fmt.Sprintf("parent %dx%d needs %d elements, base holds %d", rows, cols, need, len(base)))
	}

	return BlockPtr{
		base:      base,
		rows:      rows,
		cols:      cols,
		strideRow: strideRow,
		strideCol: strideCol,
		offRow:    offRow,
		offCol:    offCol,
		blockRows: blockRows,
		blockCols: blockCols,
		order:     order,
	}, nil
}

// BlockShape returns the window dimensions.
func (bp BlockPtr) BlockShape() (rows, cols int) { return bp.blockRows, bp.blockCols }

// Offsets returns the window's current position.
func (bp BlockPtr) Offsets() (row, col int) { return bp.offRow, bp.offCol }

// Advance returns a copy of the pointer slid by (dRows, dCols).
func (bp BlockPtr) Advance(dRows, dCols int) BlockPtr {
	bp.offRow += dRows
	bp.offCol += dCols
	return bp
}

// Load copies the current window into dst, a dense row-major tile of
// blockRows×blockCols elements. Lanes outside the parent read as zero.
func (bp BlockPtr) Load(dst []float32) {
	br, bc := bp.blockRows, bp.blockCols
	_ = dst[br*bc-1]

	for r := 0; r < br; r++ {
		row := bp.offRow + r
		out := dst[r*bc : r*bc+bc]
		if row < 0 || row >= bp.rows {
			clear(out)
			continue
		}

		// Clip the column range; zero the clipped lanes.
		c0, c1 := bp.offCol, bp.offCol+bc
		if c0 < 0 {
			clear(out[:min(-c0, bc)])
		}
		if c1 > bp.cols {
			over := min(c1-bp.cols, bc)
			clear(out[bc-over:])
		}
		lo, hi := max(c0, 0), min(c1, bp.cols)
		if lo >= hi {
			continue
		}

		src := bp.base[row*bp.strideRow+lo*bp.strideCol:]
		if bp.strideCol == 1 {
			copy(out[lo-c0:hi-c0], src[:hi-lo])
			continue
		}
		for c := 0; c < hi-lo; c++ {
			out[lo-c0+c] = src[c*bp.strideCol]
		}
	}
}

// Store writes a dense row-major tile back through the window. Lanes
// outside the parent are dropped.
func (bp BlockPtr) Store(src []float32) {
	br, bc := bp.blockRows, bp.blockCols
	_ = src[br*bc-1]

	for r := 0; r < br; r++ {
		row := bp.offRow + r
		if row < 0 || row >= bp.rows {
			continue
		}
		c0, c1 := bp.offCol, bp.offCol+bc
		lo, hi := max(c0, 0), min(c1, bp.cols)
		if lo >= hi {
			continue
		}

		in := src[r*bc+lo-c0 : r*bc+hi-c0]
		dst := bp.base[row*bp.strideRow+lo*bp.strideCol:]
		if bp.strideCol == 1 {
			copy(dst[:hi-lo], in)
			continue
		}
		for c, v := range in {
			dst[c*bp.strideCol] = v
		}
	}
}
