package match

// Mark is the content of one board cell.
type Mark uint8

const (
	MarkEmpty Mark = iota
	MarkX
	MarkO
)

func (m Mark) String() string {
	switch m {
	case MarkX:
		return "X"
	case MarkO:
		return "O"
	default:
		return ""
	}
}

// Board is a 3x3 grid, cells indexed 0..8 row by row.
type Board [9]Mark

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func (b *Board) Place(cell int, mark Mark) error {
	if cell < 0 || cell >= len(b) || b[cell] != MarkEmpty {
		return ErrInvalidMove
	}
	b[cell] = mark
	return nil
}

// Winner returns the mark holding a full line, or MarkEmpty.
func (b *Board) Winner() Mark {
	for _, l := range lines {
		if m := b[l[0]]; m != MarkEmpty && b[l[1]] == m && b[l[2]] == m {
			return m
		}
	}
	return MarkEmpty
}

func (b *Board) Full() bool {
	for _, m := range b {
		if m == MarkEmpty {
			return false
		}
	}
	return true
}

func (b *Board) Cells() [9]string {
	var out [9]string
	for i, m := range b {
		out[i] = m.String()
	}
	return out
}

