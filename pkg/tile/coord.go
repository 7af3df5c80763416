package tile

import (
	"fmt"
	"strconv"
)

type Coord struct {
	Z, X, Y int
	Format  string
}

func (c Coord) FileName() string {
	return fmt.Sprintf("%d/%d/%d.%s", c.Z, c.X, c.Y, c.Format)
}

// Values returns the coordinate as template values keyed by the
// placeholder names used in tile url and key patterns.
func (c Coord) Values() map[string]string {
	return map[string]string{
		"z":   strconv.Itoa(c.Z),
		"x":   strconv.Itoa(c.X),
		"y":   strconv.Itoa(c.Y),
		"fmt": c.Format,
	}
}

// IsValid reports whether x (column) and y (row) fall inside the tile matrix
// of scheme s at zoom level z.
func (c Coord) IsValid(s TilingScheme) bool {
	if c.Z < 0 || c.Z > 30 {
		return false
	}
	cols, rows := s.MatrixSize(c.Z)
	return c.X >= 0 && c.X < cols && c.Y >= 0 && c.Y < rows
}
