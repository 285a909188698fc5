package payout

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Outcome string

const (
	OutcomeHome Outcome = "HOME"
	OutcomeDraw Outcome = "DRAW"
	OutcomeAway Outcome = "AWAY"
)

func ParseOutcome(value string) (Outcome, bool) {
	outcome := Outcome(strings.ToUpper(strings.TrimSpace(value)))
	return outcome, outcome.Valid()
}

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeHome, OutcomeDraw, OutcomeAway:
		return true
	default:
		return false
	}
}

// OutcomeFromScores derives the outcome purely from the final score.
func OutcomeFromScores(home, away int) Outcome {
	switch {
	case home > away:
		return OutcomeHome
	case home < away:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

// Kind is the persisted discriminator of a group's payout scheme.
type Kind string

const (
	KindFlat   Kind = "flat"
	KindCredit Kind = "credit"
)

func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindFlat, "classic":
		return KindFlat, true
	case KindCredit, "relative":
		return KindCredit, true
	default:
		return "", false
	}
}

// Scheme is either Flat or CreditWager.
type Scheme interface {
	Kind() Kind
	isScheme()
}

// Flat awards one point for a correct prediction.
type Flat struct{}

func (Flat) Kind() Kind { return KindFlat }
func (Flat) isScheme()  {}

// CreditWager awards stake x multiplier for a correct prediction.
type CreditWager struct {
	Multipliers Multipliers
}

func (CreditWager) Kind() Kind { return KindCredit }
func (CreditWager) isScheme()  {}

// SchemeFor builds the scheme for kind, attaching multipliers to credit schemes.
func SchemeFor(kind Kind, multipliers Multipliers) Scheme {
	if kind == KindCredit {
		return CreditWager{Multipliers: multipliers}
	}
	return Flat{}
}

// Multipliers are per-outcome odds attached to a match for one group.
type Multipliers struct {
	Home decimal.Decimal
	Draw decimal.Decimal
	Away decimal.Decimal
}

var one = decimal.NewFromInt(1)

func NeutralMultipliers() Multipliers {
	return Multipliers{Home: one, Draw: one, Away: one}
}

// For returns the multiplier for outcome; absent, zero or negative values are neutral.
func (m Multipliers) For(outcome Outcome) decimal.Decimal {
	var value decimal.Decimal
	switch outcome {
	case OutcomeHome:
		value = m.Home
	case OutcomeDraw:
		value = m.Draw
	case OutcomeAway:
		value = m.Away
	default:
		return one
	}
	if !value.IsPositive() {
		return one
	}
	return value
}

// Normalized replaces every non-positive multiplier with the neutral value.
func (m Multipliers) Normalized() Multipliers {
	return Multipliers{
		Home: m.For(OutcomeHome),
		Draw: m.For(OutcomeDraw),
		Away: m.For(OutcomeAway),
	}
}

// ParseMultiplier parses odds text such as "2.35"; malformed input yields the neutral value.
func ParseMultiplier(value string) decimal.Decimal {
	parsed, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil || !parsed.IsPositive() {
		return one
	}
	return parsed
}
