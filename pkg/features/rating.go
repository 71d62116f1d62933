package features

// NormalizeRating maps ratings around 1500 so that 1000 becomes -1 and 2000 becomes +1.
func NormalizeRating(rating float64) float64 {
	return rating/500 - 3
}

// BoolToInt stores booleans as 0/1, which keeps the processed file small.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
