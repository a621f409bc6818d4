package domain

// Cell is a nullable text value. An empty CSV field decodes to an invalid
// (missing) cell and a missing cell encodes back to an empty field.
type Cell struct {
	String string
	Valid  bool
}

// Text returns a present cell holding s.
func Text(s string) Cell {
	return Cell{String: s, Valid: true}
}

// Missing returns the missing-value marker.
func Missing() Cell {
	return Cell{}
}

// Dataset is an ordered table of rows sharing one header.
// Every row holds exactly len(Header) cells.
type Dataset struct {
	Header []string
	Rows   [][]Cell
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := &Dataset{
		Header: append([]string(nil), d.Header...),
		Rows:   make([][]Cell, len(d.Rows)),
	}
	for i, row := range d.Rows {
		out.Rows[i] = append([]Cell(nil), row...)
	}
	return out
}
