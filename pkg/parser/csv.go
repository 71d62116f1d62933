package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when the input header lacks a required column
var ErrMissingColumn = errors.New("missing required column")

// RequiredColumns are the raw dataset columns feature extraction depends on
var RequiredColumns = []string{
	"id", "rated", "created_at", "winner", "increment_code",
	"opening_eco", "opening_ply", "white_rating", "black_rating",
}

// Header maps column names to their position in a CSV row
type Header map[string]int

// NewHeader indexes a header row and checks the required columns are present
func NewHeader(names []string) (Header, error) {
	h := make(Header, len(names))
	for i, n := range names {
		h[strings.TrimSpace(n)] = i
	}
	for _, c := range RequiredColumns {
		if _, ok := h[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	return h, nil
}

func (h Header) get(fields []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// ReadGames reads every game from a raw dataset CSV
func ReadGames(r io.Reader) ([]GameRecord, error) {
	var records []GameRecord
	err := WalkGames(r, func(g GameRecord) error {
		records = append(records, g)
		return nil
	})
	return records, err
}

// WalkGames calls onGame for every row of a raw dataset CSV. The first
// malformed row stops the walk.
func WalkGames(r io.Reader, onGame func(GameRecord) error) error {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	names, err := cr.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	header, err := NewHeader(names)
	if err != nil {
		return err
	}

	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		game, err := ParseGameRow(header, fields)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := onGame(game); err != nil {
			return err
		}
	}
}

// ParseGameRow converts a CSV row into a GameRecord
func ParseGameRow(h Header, fields []string) (GameRecord, error) {
	g := GameRecord{
		ID:            h.get(fields, "id"),
		VictoryStatus: h.get(fields, "victory_status"),
		Winner:        h.get(fields, "winner"),
		IncrementCode: h.get(fields, "increment_code"),
		WhiteID:       h.get(fields, "white_id"),
		BlackID:       h.get(fields, "black_id"),
		OpeningECO:    h.get(fields, "opening_eco"),
		OpeningName:   h.get(fields, "opening_name"),
	}

	var err error
	if g.Rated, err = strconv.ParseBool(h.get(fields, "rated")); err != nil {
		return GameRecord{}, fmt.Errorf("rated: %w", err)
	}
	if g.CreatedAt, err = ParseTimestamp(h.get(fields, "created_at")); err != nil {
		return GameRecord{}, fmt.Errorf("created_at: %w", err)
	}
	if v := h.get(fields, "last_move_at"); v != "" {
		if g.LastMoveAt, err = ParseTimestamp(v); err != nil {
			return GameRecord{}, fmt.Errorf("last_move_at: %w", err)
		}
	}
	if v := h.get(fields, "turns"); v != "" {
		if g.Turns, err = strconv.Atoi(v); err != nil {
			return GameRecord{}, fmt.Errorf("turns: %w", err)
		}
	}
	if g.WhiteRating, err = strconv.ParseFloat(h.get(fields, "white_rating"), 64); err != nil {
		return GameRecord{}, fmt.Errorf("white_rating: %w", err)
	}
	if g.BlackRating, err = strconv.ParseFloat(h.get(fields, "black_rating"), 64); err != nil {
		return GameRecord{}, fmt.Errorf("black_rating: %w", err)
	}

	g.OpeningPly = math.NaN()
	if v := strings.TrimSpace(h.get(fields, "opening_ply")); v != "" {
		if g.OpeningPly, err = strconv.ParseFloat(v, 64); err != nil {
			return GameRecord{}, fmt.Errorf("opening_ply: %w", err)
		}
	}

	return g, nil
}

// ParseTimestamp reads an epoch-millisecond value. The dataset stores some
// timestamps in float notation (e.g. "1.50421E+12").
func ParseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	return int64(math.Round(f)), nil
}
