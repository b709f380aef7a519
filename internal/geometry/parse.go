package geometry

import "encoding/json"

var (
	ErrMalformedGeometry    = &GeometryError{"geometry is not a valid GeoJSON structure"}
	ErrCentroidUnresolvable = &GeometryError{"no resolvable coordinate pair in geometry"}
)

// GeometryError represents geometry normalization errors
type GeometryError struct {
	message string
}

func (e *GeometryError) Error() string {
	return e.message
}

// Geometry is a parsed GeoJSON geometry structure. Keys and nesting follow
// whatever the upstream dataset sent; only the "type" and "coordinates"
// members are interpreted.
type Geometry map[string]any

// Parse normalizes a raw geometry value. Upstream payloads carry geometry
// either as a structured object or as a JSON-encoded string (Socrata exports
// do both, sometimes within a single dataset). A nil value means the feature
// has no geometry, which is not an error.
func Parse(raw any) (Geometry, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case Geometry:
		return v, nil
	case map[string]any:
		return Geometry(v), nil
	case string:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil, ErrMalformedGeometry
		}
		return Geometry(decoded), nil
	default:
		return nil, ErrMalformedGeometry
	}
}
