package alert

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Result is the verdict for one rule against one quote.
type Result struct {
	Triggered bool            `json:"triggered"`
	Target    decimal.Decimal `json:"target"`
	// DistancePct is invalid when the target is zero.
	DistancePct decimal.NullDecimal `json:"distance_pct"`
}

// Evaluate applies the rule's predicate to the quote. It keeps no state, so a
// rule whose condition holds triggers on every call.
func Evaluate(rule AlertRule, q Quote) Result {
	volumeOK := decimal.NewFromInt(q.Volume).GreaterThanOrEqual(rule.MinVolume)

	var triggered bool
	switch rule.Type {
	case AlertAbove:
		triggered = q.Price.GreaterThanOrEqual(rule.MaxPrice) && volumeOK
	case AlertBelow:
		triggered = q.Price.LessThanOrEqual(rule.MinPrice) && volumeOK
	case AlertRange:
		triggered = rule.MinPrice.LessThanOrEqual(q.Price) && q.Price.LessThanOrEqual(rule.MaxPrice) && volumeOK
	}

	target := Target(rule)
	return Result{
		Triggered:   triggered,
		Target:      target,
		DistancePct: Distance(q.Price, target),
	}
}

// Target returns the threshold the distance is measured against.
func Target(rule AlertRule) decimal.Decimal {
	switch rule.Type {
	case AlertAbove, AlertRange:
		return rule.MaxPrice
	default:
		return rule.MinPrice
	}
}

// Distance is the signed percent gap between price and target, rounded to one
// decimal. A zero target has no defined distance.
func Distance(price, target decimal.Decimal) decimal.NullDecimal {
	if target.IsZero() {
		return decimal.NullDecimal{}
	}
	pct := price.Sub(target).Div(target).Mul(hundred).Round(1)
	return decimal.NullDecimal{Decimal: pct, Valid: true}
}

// SignedPercent formats a percentage with an explicit sign and two decimals.
func SignedPercent(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if d.Sign() >= 0 {
		s = "+" + s
	}
	return s
}

// FormatMessage builds the text sent to notification sinks.
func FormatMessage(rule AlertRule, q Quote) string {
	return fmt.Sprintf("StockPulse: %s reached its target! Price: %s$ (%s%%)", rule.Symbol, q.Price.String(), SignedPercent(q.ChangePct))
}
