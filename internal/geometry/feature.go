package geometry

// Feature is a normalized dataset feature: a parsed geometry plus its
// property mapping. Features whose geometry could not be parsed never
// become Features.
type Feature struct {
	Properties map[string]any
	Geometry   Geometry
}
