package pipeline

import "fmt"

// =============================================================================
// Geometry
// =============================================================================

// Dimension represents width and height.
type Dimension struct {
	Width  int
	Height int
}

// Rectangle represents a rectangular area.
type Rectangle struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether the rectangle has no area.
func (r Rectangle) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Within reports whether the rectangle lies inside a width x height frame.
func (r Rectangle) Within(width, height int) bool {
	return !r.Empty() && r.X >= 0 && r.Y >= 0 && r.X+r.Width <= width && r.Y+r.Height <= height
}

func (r Rectangle) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// =============================================================================
// Color filter arrays
// =============================================================================

// Filter is the color of one photosite in a color filter array.
type Filter uint8

const (
	FilterNone Filter = iota
	FilterR
	FilterG
	FilterB
	FilterC
	FilterY
	FilterM
)

// CFA is a 2x2 color filter array pattern. The zero value means the data is
// not a mosaic.
type CFA struct {
	Name   string
	Matrix [2][2]Filter // [row][column]
}

var (
	CFARGGB = CFA{"RGGB", [2][2]Filter{{FilterR, FilterG}, {FilterG, FilterB}}}
	CFAGRBG = CFA{"GRBG", [2][2]Filter{{FilterG, FilterR}, {FilterB, FilterG}}}
	CFAGBRG = CFA{"GBRG", [2][2]Filter{{FilterG, FilterB}, {FilterR, FilterG}}}
	CFABGGR = CFA{"BGGR", [2][2]Filter{{FilterB, FilterG}, {FilterG, FilterR}}}
	CFACYYM = CFA{"CYYM", [2][2]Filter{{FilterC, FilterY}, {FilterY, FilterM}}}
	CFAYCMY = CFA{"YCMY", [2][2]Filter{{FilterY, FilterC}, {FilterM, FilterY}}}
	CFAYMCY = CFA{"YMCY", [2][2]Filter{{FilterY, FilterM}, {FilterC, FilterY}}}
	CFAMYYC = CFA{"MYYC", [2][2]Filter{{FilterM, FilterY}, {FilterY, FilterC}}}
)

var cfaByName = map[string]CFA{
	"RGGB": CFARGGB, "GRBG": CFAGRBG, "GBRG": CFAGBRG, "BGGR": CFABGGR,
	"CYYM": CFACYYM, "YCMY": CFAYCMY, "YMCY": CFAYMCY, "MYYC": CFAMYYC,
}

// ParseCFA looks up a pattern by name, e.g. "RGGB".
func ParseCFA(name string) (CFA, bool) {
	c, ok := cfaByName[name]
	return c, ok
}

// IsZero reports whether c describes no mosaic.
func (c CFA) IsZero() bool {
	return c.Name == ""
}

// At returns the filter covering pixel (x, y).
func (c CFA) At(x, y int) Filter {
	return c.Matrix[y&1][x&1]
}

// Complementary reports whether the pattern uses cyan/yellow/magenta filters.
func (c CFA) Complementary() bool {
	for _, row := range c.Matrix {
		for _, f := range row {
			if f == FilterC || f == FilterY || f == FilterM {
				return true
			}
		}
	}
	return false
}

// Filters returns the distinct filters of the pattern.
func (c CFA) Filters() []Filter {
	var out []Filter
	seen := map[Filter]bool{}
	for _, row := range c.Matrix {
		for _, f := range row {
			if f != FilterNone && !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// Shift returns the pattern seen by an image whose origin is moved dx, dy
// photosites into this one, as happens when cropping at odd offsets.
// Patterns without a named equivalent come back unnamed.
func (c CFA) Shift(dx, dy int) CFA {
	if c.IsZero() || (dx&1 == 0 && dy&1 == 0) {
		return c
	}
	var m [2][2]Filter
	for r := 0; r < 2; r++ {
		for col := 0; col < 2; col++ {
			m[r][col] = c.Matrix[(r+dy)&1][(col+dx)&1]
		}
	}
	for _, known := range cfaByName {
		if known.Matrix == m {
			return known
		}
	}
	return CFA{Name: "CUSTOM", Matrix: m}
}
