package parser

import "math"

// GameRecord is one row of the raw chess games dataset
type GameRecord struct {
	ID            string  `json:"id"`
	Rated         bool    `json:"rated"`
	CreatedAt     int64   `json:"created_at"`
	LastMoveAt    int64   `json:"last_move_at"`
	Turns         int     `json:"turns"`
	VictoryStatus string  `json:"victory_status"`
	Winner        string  `json:"winner"`
	IncrementCode string  `json:"increment_code"`
	WhiteID       string  `json:"white_id"`
	WhiteRating   float64 `json:"white_rating"`
	BlackID       string  `json:"black_id"`
	BlackRating   float64 `json:"black_rating"`
	OpeningECO    string  `json:"opening_eco"`
	OpeningName   string  `json:"opening_name"`

	// OpeningPly is NaN when the dataset leaves it blank.
	OpeningPly float64 `json:"-"`
}

// HasOpeningPly reports whether the ply count was present in the source row
func (g GameRecord) HasOpeningPly() bool {
	return !math.IsNaN(g.OpeningPly)
}

// Deduplicate drops records whose ID was already seen, keeping the first
// occurrence. It returns the kept records and the number dropped.
func Deduplicate(records []GameRecord) ([]GameRecord, int) {
	seen := make(map[string]struct{}, len(records))
	kept := make([]GameRecord, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		kept = append(kept, r)
	}
	return kept, len(records) - len(kept)
}
