package scheduling

// MaxInspections returns the number of candidates the admission loop may inspect in a round.
// It interpolates linearly between numCandidates, at greediness 0, and roundLimit, at greediness 1,
// rounding down. At greediness 1, the scan stops after roundLimit candidates even if none of them fit.
func MaxInspections(greediness float64, roundLimit int, numCandidates int) int {
	if greediness <= 0 {
		return numCandidates
	}
	if greediness >= 1 {
		return roundLimit
	}
	n := int((1-greediness)*float64(numCandidates) + greediness*float64(roundLimit))
	if n < 0 {
		return 0
	}
	return n
}
