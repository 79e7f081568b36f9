package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

// Band partitions [From, To) into ranges of Step stars. The last range of a
// band is narrower when the width is not a multiple of Step.
type Band struct {
	From int
	To   int
	Step int
}

// StarRange is a half-open star-count range [Min, Max). Unbounded ranges
// have no upper limit.
type StarRange struct {
	Min       int
	Max       int
	Unbounded bool
}

// Qualifier renders the range in the platform's inclusive range syntax.
func (r StarRange) Qualifier() string {
	if r.Unbounded {
		return fmt.Sprintf("stars:>=%d", r.Min)
	}
	return fmt.Sprintf("stars:%d..%d", r.Min, r.Max-1)
}

func (r StarRange) String() string {
	if r.Unbounded {
		return fmt.Sprintf("[%d,∞)", r.Min)
	}
	return fmt.Sprintf("[%d,%d)", r.Min, r.Max)
}

// Plan describes how the space of active repositories is partitioned into
// platform queries that each stay under the per-query result cap.
type Plan struct {
	// Bands are ordered by ascending star count and must be contiguous.
	Bands []Band

	// PushedAfter is the activity predicate: only repositories pushed after this day.
	PushedAfter time.Time

	// IncludeArchived disables the archived:false qualifier.
	IncludeArchived bool
}

// DefaultBands narrow as the star count decreases: low-star repositories are
// far more numerous and need finer ranges to stay under the result cap.
var DefaultBands = []Band{
	{From: 1000, To: 5000, Step: 20},
	{From: 5000, To: 10000, Step: 200},
	{From: 10000, To: 50000, Step: 2000},
}

// DefaultPlan returns the standard partition plan for repositories pushed
// after the given day.
func DefaultPlan(pushedAfter time.Time) Plan {
	bands := make([]Band, len(DefaultBands))
	copy(bands, DefaultBands)
	return Plan{Bands: bands, PushedAfter: pushedAfter}
}

// Validate checks that bands are non-empty, positive and contiguous.
func (p Plan) Validate() error {
	if len(p.Bands) == 0 {
		return errors.New("plan has no star bands")
	}
	for i, b := range p.Bands {
		if b.From < 0 || b.Step <= 0 || b.To <= b.From {
			return fmt.Errorf("band %d is invalid: from=%d to=%d step=%d", i, b.From, b.To, b.Step)
		}
		if i > 0 && p.Bands[i-1].To != b.From {
			return fmt.Errorf("band %d starts at %d but band %d ends at %d", i, b.From, i-1, p.Bands[i-1].To)
		}
	}
	if p.PushedAfter.IsZero() {
		return errors.New("plan has no activity date")
	}
	return nil
}

// Ranges returns the ordered star ranges. Adjacent ranges share a bound and
// the final range is unbounded above.
func (p Plan) Ranges() []StarRange {
	var ranges []StarRange
	for _, b := range p.Bands {
		for lo := b.From; lo < b.To; lo += b.Step {
			ranges = append(ranges, StarRange{Min: lo, Max: min(lo+b.Step, b.To)})
		}
	}
	if n := len(p.Bands); n > 0 {
		ranges = append(ranges, StarRange{Min: p.Bands[n-1].To, Unbounded: true})
	}
	return ranges
}

// Partition is one planned platform query.
type Partition struct {
	Range StarRange
	Query string
}

// Partitions returns one query per star range, combined with the activity
// predicate and the archived exclusion.
func (p Plan) Partitions() []Partition {
	ranges := p.Ranges()
	parts := make([]Partition, len(ranges))
	for i, r := range ranges {
		parts[i] = Partition{Range: r, Query: p.query(r)}
	}
	return parts
}

// Queries returns the platform query strings in plan order.
func (p Plan) Queries() []string {
	parts := p.Partitions()
	queries := make([]string, len(parts))
	for i, part := range parts {
		queries[i] = part.Query
	}
	return queries
}

func (p Plan) query(r StarRange) string {
	qualifiers := []string{
		r.Qualifier(),
		"pushed:>" + p.PushedAfter.Format(domain.DateLayout),
	}
	if !p.IncludeArchived {
		qualifiers = append(qualifiers, "archived:false")
	}
	return strings.Join(qualifiers, " ")
}
