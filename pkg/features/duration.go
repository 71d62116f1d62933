package features

// GameDurationSeconds returns the time between creation and last move.
func GameDurationSeconds(createdAtMs, lastMoveAtMs int64) float64 {
	return float64(lastMoveAtMs-createdAtMs) / 1000
}
