package features

import (
	"errors"
	"fmt"
)

// ErrUnknownWinner is returned for a winner label outside white/black/draw
var ErrUnknownWinner = errors.New("unknown winner label")

const (
	WinnerWhite = "white"
	WinnerBlack = "black"
	WinnerDraw  = "draw"
)

// Outcome is the numeric encoding of a game result
type Outcome struct {
	Value  int // +1 white, -1 black, 0 draw
	IsDraw int // 1 iff draw
}

// EncodeOutcome maps a winner label to its signed outcome and draw flag
func EncodeOutcome(winner string) (Outcome, error) {
	switch winner {
	case WinnerWhite:
		return Outcome{Value: 1}, nil
	case WinnerBlack:
		return Outcome{Value: -1}, nil
	case WinnerDraw:
		return Outcome{Value: 0, IsDraw: 1}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownWinner, winner)
	}
}

// OutcomeLabel is the inverse of EncodeOutcome, used when reporting predictions
func OutcomeLabel(value int) string {
	switch value {
	case 1:
		return WinnerWhite
	case -1:
		return WinnerBlack
	case 0:
		return WinnerDraw
	}
	return fmt.Sprintf("class_%d", value)
}
