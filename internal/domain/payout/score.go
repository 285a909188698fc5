package payout

import "github.com/shopspring/decimal"

// Score returns the points awarded for a prediction.
//
// A wrong prediction scores 0 under every scheme. Flat scores 1. CreditWager scores
// floor(stake x multiplier), or floor(multiplier) without a stake. Fractional credits
// always round down; the product is computed in decimal so float representation
// error never moves the result across an integer boundary.
func Score(predicted, actual Outcome, scheme Scheme, stake *int64) int64 {
	if !actual.Valid() || predicted != actual {
		return 0
	}

	credit, ok := scheme.(CreditWager)
	if !ok {
		return 1
	}

	amount := credit.Multipliers.For(actual)
	if stake != nil {
		amount = decimal.NewFromInt(*stake).Mul(amount)
	}
	points := amount.Floor().IntPart()
	if points < 0 {
		return 0
	}
	return points
}
