package tile

const (
	WorldCRS84Quad  = "WorldCRS84Quad"
	WebMercatorQuad = "WebMercatorQuad"
)

// TilingScheme is a named tile matrix set and the document describing it.
type TilingScheme struct {
	ID  string `json:"tileMatrixSet" yaml:"tileMatrixSet"`
	URI string `json:"tileMatrixSetURI" yaml:"tileMatrixSetURI"`
}

// the catalog is read-only after package initialisation, callers only ever
// receive copies.
var catalog = []TilingScheme{
	{
		ID:  WorldCRS84Quad,
		URI: "http://schemas.opengis.net/tms/1.0/json/examples/WorldCRS84Quad.json",
	},
	{
		ID:  WebMercatorQuad,
		URI: "http://schemas.opengis.net/tms/1.0/json/examples/WebMercatorQuad.json",
	},
}

// matrixAtZero is the number of columns and rows of each scheme's tile
// matrix at zoom 0. Both double with every zoom level.
var matrixAtZero = map[string][2]int{
	WorldCRS84Quad:  {2, 1},
	WebMercatorQuad: {1, 1},
}

// MatrixSize returns the number of tile columns and rows at zoom z. Schemes
// without a known shape are treated as a square quadtree.
func (s TilingScheme) MatrixSize(z int) (cols, rows int) {
	shape, ok := matrixAtZero[s.ID]
	if !ok {
		shape = [2]int{1, 1}
	}
	return shape[0] << uint(z), shape[1] << uint(z)
}

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, s := range catalog {
		idx[s.ID] = i
	}
	return idx
}()

// Catalog returns every known tiling scheme in catalog order.
func Catalog() []TilingScheme {
	result := make([]TilingScheme, len(catalog))
	copy(result, catalog)
	return result
}

func LookupScheme(id string) (TilingScheme, bool) {
	i, ok := catalogIndex[id]
	if !ok {
		return TilingScheme{}, false
	}
	return catalog[i], true
}

// FilterSchemes returns the catalog entries named in ids, in catalog order.
// Unknown and repeated ids are ignored.
func FilterSchemes(ids []string) []TilingScheme {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	result := make([]TilingScheme, 0, len(ids))
	for _, s := range catalog {
		if wanted[s.ID] {
			result = append(result, s)
		}
	}
	return result
}
