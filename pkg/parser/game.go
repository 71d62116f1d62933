package parser

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// gameMessage is the wire form of a GameRecord on Kafka
type gameMessage struct {
	ID            string   `json:"id"`
	Rated         bool     `json:"rated"`
	CreatedAt     int64    `json:"created_at"`
	LastMoveAt    int64    `json:"last_move_at"`
	Turns         int      `json:"turns"`
	VictoryStatus string   `json:"victory_status"`
	Winner        string   `json:"winner"`
	IncrementCode string   `json:"increment_code"`
	WhiteID       string   `json:"white_id"`
	WhiteRating   *float64 `json:"white_rating"`
	BlackID       string   `json:"black_id"`
	BlackRating   *float64 `json:"black_rating"`
	OpeningECO    string   `json:"opening_eco"`
	OpeningName   string   `json:"opening_name"`
	OpeningPly    *float64 `json:"opening_ply"`
}

// MarshalGameRecord encodes a record for publishing. A missing ply count is
// sent as null.
func MarshalGameRecord(g GameRecord) ([]byte, error) {
	white, black := g.WhiteRating, g.BlackRating
	msg := gameMessage{
		ID:            g.ID,
		Rated:         g.Rated,
		CreatedAt:     g.CreatedAt,
		LastMoveAt:    g.LastMoveAt,
		Turns:         g.Turns,
		VictoryStatus: g.VictoryStatus,
		Winner:        g.Winner,
		IncrementCode: g.IncrementCode,
		WhiteID:       g.WhiteID,
		WhiteRating:   &white,
		BlackID:       g.BlackID,
		BlackRating:   &black,
		OpeningECO:    g.OpeningECO,
		OpeningName:   g.OpeningName,
	}
	if g.HasOpeningPly() {
		ply := g.OpeningPly
		msg.OpeningPly = &ply
	}
	return json.Marshal(msg)
}

// ParseGameRecord deserializes a Kafka message value into a GameRecord
func ParseGameRecord(data []byte) (GameRecord, error) {
	var msg gameMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return GameRecord{}, fmt.Errorf("failed to unmarshal game message: %w", err)
	}

	if msg.ID == "" {
		return GameRecord{}, fmt.Errorf("missing game ID")
	}
	if msg.WhiteRating == nil || msg.BlackRating == nil {
		return GameRecord{}, fmt.Errorf("game %s: missing rating", msg.ID)
	}

	g := GameRecord{
		ID:            msg.ID,
		Rated:         msg.Rated,
		CreatedAt:     msg.CreatedAt,
		LastMoveAt:    msg.LastMoveAt,
		Turns:         msg.Turns,
		VictoryStatus: msg.VictoryStatus,
		Winner:        msg.Winner,
		IncrementCode: msg.IncrementCode,
		WhiteID:       msg.WhiteID,
		WhiteRating:   *msg.WhiteRating,
		BlackID:       msg.BlackID,
		BlackRating:   *msg.BlackRating,
		OpeningECO:    msg.OpeningECO,
		OpeningName:   msg.OpeningName,
		OpeningPly:    math.NaN(),
	}
	if msg.OpeningPly != nil {
		g.OpeningPly = *msg.OpeningPly
	}
	return g, nil
}
