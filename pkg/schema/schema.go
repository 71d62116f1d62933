// Package schema freezes the one-hot category sets of the design matrix so
// that training and inference produce aligned feature vectors.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"chessgames/pkg/features"
)

var (
	// ErrUnknownCategory is returned when a code falls into "other" but the
	// schema was built without an other column for that group
	ErrUnknownCategory = errors.New("category not in schema")

	// ErrSchemaMismatch is returned when two artifacts disagree on the schema version
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// Leading and trailing columns of every design-matrix row
var (
	RatingColumns = []string{
		"rated",
		"white_rating",
		"black_rating",
		"white_rating_advantage",
		"approx_time_limit_hours",
	}
	TimeColumns   = []string{"month_of_year", "day_of_week", "hour_of_day"}
	TargetColumns = []string{"outcome", "is_draw"}

	// FloatColumns are written with a decimal point, everything else as an integer
	FloatColumns = []string{
		"white_rating",
		"black_rating",
		"white_rating_advantage",
		"approx_time_limit_hours",
	}
)

// Group is the retained category set of one ECO truncation length
type Group struct {
	Chars      int      `json:"chars"`
	Categories []string `json:"categories"`
}

// HasOther reports whether rare codes of this group have their own column
func (g Group) HasOther() bool {
	for _, c := range g.Categories {
		if c == features.OtherCategory {
			return true
		}
	}
	return false
}

// Schema is the versioned description of the design matrix
type Schema struct {
	Version             string  `json:"version"`
	Cutoff              int     `json:"cutoff"`
	MaxTimeLimitMinutes float64 `json:"max_time_limit_minutes"`
	Groups              []Group `json:"groups"`

	lookup []map[string]int
}

// Options controls how a schema is built
type Options struct {
	Lengths             []int
	Cutoff              int
	MaxTimeLimitMinutes float64
}

// Build computes the retained ECO categories from the full set of opening
// codes. Codes with fewer than opts.Cutoff games collapse to "other".
func Build(codes []string, opts Options) *Schema {
	s := &Schema{
		Cutoff:              opts.Cutoff,
		MaxTimeLimitMinutes: opts.MaxTimeLimitMinutes,
	}
	for _, chars := range opts.Lengths {
		collapsed := features.CollapseRare(features.CountTruncatedECO(codes, chars), opts.Cutoff)
		cats := make([]string, 0, len(collapsed))
		for c := range collapsed {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		s.Groups = append(s.Groups, Group{Chars: chars, Categories: cats})
	}
	s.Version = s.fingerprint()
	s.compile()
	return s
}

func (s *Schema) fingerprint() string {
	h := xxhash.New()
	h.WriteString(strconv.Itoa(s.Cutoff))
	h.WriteString("|")
	h.WriteString(strconv.FormatFloat(s.MaxTimeLimitMinutes, 'g', -1, 64))
	for _, g := range s.Groups {
		h.WriteString("|")
		h.WriteString(strconv.Itoa(g.Chars))
		for _, c := range g.Categories {
			h.WriteString(",")
			h.WriteString(c)
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func (s *Schema) compile() {
	s.lookup = make([]map[string]int, len(s.Groups))
	for i, g := range s.Groups {
		m := make(map[string]int, len(g.Categories))
		for j, c := range g.Categories {
			m[c] = j
		}
		s.lookup[i] = m
	}
}

// Columns returns the ordered feature column names
func (s *Schema) Columns() []string {
	cols := append([]string{}, RatingColumns...)
	for _, g := range s.Groups {
		for _, c := range g.Categories {
			cols = append(cols, features.ECOColumn(g.Chars, c))
		}
	}
	return append(cols, TimeColumns...)
}

// Width is the number of feature columns
func (s *Schema) Width() int {
	n := len(RatingColumns) + len(TimeColumns)
	for _, g := range s.Groups {
		n += len(g.Categories)
	}
	return n
}

// Category maps an opening code to its retained category in group i
func (s *Schema) Category(i int, code string) (int, error) {
	g := s.Groups[i]
	truncated := features.TruncateECO(code, g.Chars)
	if j, ok := s.lookup[i][truncated]; ok && truncated != features.OtherCategory {
		return j, nil
	}
	if j, ok := s.lookup[i][features.OtherCategory]; ok {
		return j, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownCategory, features.ECOColumn(g.Chars, truncated))
}

// Verify checks that an artifact built against version matches this schema
func (s *Schema) Verify(version string) error {
	if version != s.Version {
		return fmt.Errorf("%w: have %s, got %s", ErrSchemaMismatch, s.Version, version)
	}
	return nil
}

// Marshal encodes the schema as JSON
func (s *Schema) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Unmarshal decodes a schema and checks its version against its content
func Unmarshal(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	if want := s.fingerprint(); s.Version != want {
		return nil, fmt.Errorf("%w: stored %s, content %s", ErrSchemaMismatch, s.Version, want)
	}
	s.compile()
	return &s, nil
}
