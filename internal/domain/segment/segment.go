// Package segment provides the Segment and Channel domain entities.
package segment

// Kind distinguishes long-form features from short filler content.
type Kind int

const (
	KindFeature Kind = iota // Long-form feature content
	KindFiller              // Short filler content played during breaks
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindFeature:
		return "feature"
	case KindFiller:
		return "filler"
	default:
		return "unknown"
	}
}

// Segment represents one unit of playable content.
type Segment struct {
	Kind       Kind
	Ref        string // Media reference (absolute file path)
	Title      string // Display title
	Desc       string // Optional description (tags, year)
	DurationMs int64  // Duration in milliseconds, 0 until probed
}

// KnownDuration reports whether the segment's duration has been resolved.
func (s Segment) KnownDuration() bool {
	return s.DurationMs > 0
}

// Channel represents a named, ordered collection of segments.
// A channel is either a filler rotation or a feature queue; the order is
// insertion order unless an explicit permutation is applied by a sequencer.
type Channel struct {
	Name        string
	Description string
	Segments    []Segment
}

// IsEmpty reports whether the channel has no segments.
func (c *Channel) IsEmpty() bool {
	return len(c.Segments) == 0
}

// At returns the segment at index i, treating the segment list as an
// infinite cyclic rotation.
func (c *Channel) At(i int) Segment {
	return c.Segments[i%len(c.Segments)]
}
