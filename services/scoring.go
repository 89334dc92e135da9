// services/scoring.go
package services

// placementPoints awards points for finishing positions 1-8. Anything
// outside the table (including no placement recorded) contributes 0.
var placementPoints = map[int]int{
	1: 15,
	2: 12,
	3: 10,
	4: 8,
	5: 6,
	6: 4,
	7: 2,
	8: 1,
}

// Score computes the total score for a result: placement points plus one
// point per kill, with kills floored at zero.
func Score(placement, kills int) int {
	if kills < 0 {
		kills = 0
	}
	return placementPoints[placement] + kills
}
