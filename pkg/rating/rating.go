// Package rating implements the Elo-style rating update applied when a
// game concludes.
package rating

import "math"

// KFactor is the rating sensitivity applied to every update.
const KFactor = 32.0

// Result is the outcome of a game from the perspective of the first of
// the two players passed to Update.
type Result float64

const (
	Loss Result = 0.0
	Draw Result = 0.5
	Win  Result = 1.0
)

// expectedScore returns the probability a player rated `rating` is
// expected to score against an opponent rated `opponent`.
func expectedScore(rating, opponent int) float64 {
	return 1.0 / (1.0 + math.Pow(10.0, float64(opponent-rating)/400.0))
}

// Update returns the new ratings for a and b after a game between them
// with the given result for a (Loss/Draw/Win for a implies the
// complementary outcome for b).
func Update(ratingA, ratingB int, result Result) (newA, newB int) {
	expectedA := expectedScore(ratingA, ratingB)
	expectedB := 1.0 - expectedA

	scoreA := float64(result)
	scoreB := 1.0 - scoreA

	newA = ratingA + int(math.Round(KFactor*(scoreA-expectedA)))
	newB = ratingB + int(math.Round(KFactor*(scoreB-expectedB)))
	return newA, newB
}
