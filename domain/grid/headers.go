package grid

import (
	"fmt"

	"casedesk/internal/errors"
)

// DefaultAnchor labels the first column of the data region
const DefaultAnchor = "STT"

// Position addresses one cell of a grid
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Headers is the flattened header of a grid
type Headers struct {
	Names      []string `json:"names"`
	Anchor     Position `json:"anchor"`
	AnchorName string   `json:"anchor_name"`
}

// DataStart returns the first row index below the header
func (h *Headers) DataStart() int {
	return h.Anchor.Row + 1
}

// FindAnchor scans row-major for the first cell whose trimmed display equals token.
// Sheets holding several anchored tables only ever resolve to the first one.
func FindAnchor(g Grid, token string) (Position, error) {
	for i, row := range g {
		for j, cell := range row {
			if cell.Trimmed() == token {
				return Position{Row: i, Col: j}, nil
			}
		}
	}
	return Position{}, errors.AnchorNotFound(token)
}

// MergeName combines the upper and lower header labels of column idx
func MergeName(upper, lower string, idx int) string {
	switch {
	case upper != "" && lower != "":
		return upper + "_" + lower
	case upper != "":
		return upper
	case lower != "":
		return lower
	default:
		return fmt.Sprintf("Unnamed_%d", idx)
	}
}

// Uniquify suffixes every occurrence of a repeated name with its column index,
// the first occurrence included: ["X","X","Y"] becomes ["X_0","X_1","Y"].
// Downstream queries depend on these names, so the first occurrence is never left bare.
// Names that collide only after suffixing go through the same rule again.
func Uniquify(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)

	for {
		counts := make(map[string]int, len(out))
		for _, name := range out {
			counts[name]++
		}

		changed := false
		for i, name := range out {
			if counts[name] > 1 {
				out[i] = fmt.Sprintf("%s_%d", name, i)
				changed = true
			}
		}
		if !changed {
			return out
		}
	}
}

// Reconstruct locates the anchor and flattens the two header rows ending at it
// into one unique name per column. An anchor in the first row has an empty upper row.
func Reconstruct(g Grid, token string) (*Headers, error) {
	anchor, err := FindAnchor(g, token)
	if err != nil {
		return nil, err
	}

	width := g.Width()
	merged := make([]string, width)
	for j := 0; j < width; j++ {
		upper := g.At(anchor.Row-1, j).Trimmed()
		lower := g.At(anchor.Row, j).Trimmed()
		merged[j] = MergeName(upper, lower, j)
	}

	names := Uniquify(merged)
	return &Headers{
		Names:      names,
		Anchor:     anchor,
		AnchorName: names[anchor.Col],
	}, nil
}
