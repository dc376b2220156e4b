package extractor

// RouteStrategy assigns route endpoints from the extracted entities.
// The positional heuristic below is crude; keeping it behind an
// interface makes it replaceable without touching the pipeline.
type RouteStrategy interface {
	Route(entities []Entity) (origin, destination *string)
}

// PositionalStrategy treats the first LOCATION entity as the origin
// and the second as the destination. Absent entities map to nil.
type PositionalStrategy struct{}

// NewPositionalStrategy creates the ordinal route strategy
func NewPositionalStrategy() PositionalStrategy {
	return PositionalStrategy{}
}

// Route applies the first/second LOCATION heuristic
func (PositionalStrategy) Route(entities []Entity) (origin, destination *string) {
	locations := Locations(entities)
	if len(locations) > 0 {
		origin = &locations[0]
	}
	if len(locations) > 1 {
		destination = &locations[1]
	}
	return origin, destination
}
