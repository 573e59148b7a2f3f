package rating_test

import (
	"testing"

	"github.com/opsnlops/mpchess/pkg/rating"
	"github.com/stretchr/testify/assert"
)

func TestUpdateEqualRatingsWinLoss(t *testing.T) {
	newWinner, newLoser := rating.Update(1500, 1500, rating.Win)
	assert.Equal(t, 1516, newWinner)
	assert.Equal(t, 1484, newLoser)
}

func TestUpdateEqualRatingsDrawIsNoOp(t *testing.T) {
	newA, newB := rating.Update(1500, 1500, rating.Draw)
	assert.Equal(t, 1500, newA)
	assert.Equal(t, 1500, newB)
}

func TestUpdateUnderdogWinGainsMoreThanFavorite(t *testing.T) {
	underdogNew, favoriteNew := rating.Update(1200, 1800, rating.Win)
	assert.Greater(t, underdogNew-1200, 16)
	assert.Less(t, favoriteNew, 1800)
}

func TestUpdateFavoriteWinGainsLittle(t *testing.T) {
	favoriteNew, underdogNew := rating.Update(1800, 1200, rating.Win)
	assert.Less(t, favoriteNew-1800, 5)
	assert.Greater(t, underdogNew, 1195)
}
