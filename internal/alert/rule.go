// Package alert holds the rule model and the trigger evaluation used on every
// polling cycle.
package alert

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Column names of the rule table.
const (
	ColumnOwner     = "user_email"
	ColumnSymbol    = "symb"
	ColumnAlertType = "alert_type"
	ColumnMinPrice  = "min_price"
	ColumnMaxPrice  = "max_price"
	ColumnMinVolume = "min_vol"
	ColumnStatus    = "status"
)

// StatusActive marks rules that take part in evaluation.
const StatusActive = "Active"

// Record is one raw row of the rule table keyed by column name.
type Record map[string]string

// AlertType selects the threshold shape of a rule.
type AlertType string

const (
	AlertAbove AlertType = "ABOVE"
	AlertBelow AlertType = "BELOW"
	AlertRange AlertType = "RANGE"
)

// ParseAlertType maps a raw cell to an AlertType. Blank and unknown values
// resolve to AlertAbove. The Hebrew labels are legacy spreadsheet values.
func ParseAlertType(raw string) AlertType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "above", "מעל":
		return AlertAbove
	case "below", "מתחת":
		return AlertBelow
	case "range", "טווח":
		return AlertRange
	default:
		return AlertAbove
	}
}

// AlertRule is a normalized rule. Numeric fields are never undefined: absent or
// malformed input becomes zero.
type AlertRule struct {
	Owner     string          `json:"owner"`
	Symbol    string          `json:"symbol"`
	Type      AlertType       `json:"alert_type"`
	MinPrice  decimal.Decimal `json:"min_price"`
	MaxPrice  decimal.Decimal `json:"max_price"`
	MinVolume decimal.Decimal `json:"min_volume"`
	Status    string          `json:"status"`
}

// Normalize returns the active rules owned by identity, in input order.
// Owner matching is exact: case-sensitive and untrimmed.
func Normalize(records []Record, identity string) []AlertRule {
	rules := make([]AlertRule, 0, len(records))
	for _, rec := range records {
		if rec[ColumnOwner] != identity {
			continue
		}
		if rec[ColumnStatus] != StatusActive {
			continue
		}
		rules = append(rules, NormalizeRecord(rec))
	}
	return rules
}

// NormalizeRecord coerces a single row without filtering it.
func NormalizeRecord(rec Record) AlertRule {
	return AlertRule{
		Owner:     rec[ColumnOwner],
		Symbol:    rec[ColumnSymbol],
		Type:      ParseAlertType(rec[ColumnAlertType]),
		MinPrice:  parseNumber(rec[ColumnMinPrice]),
		MaxPrice:  parseNumber(rec[ColumnMaxPrice]),
		MinVolume: parseNumber(rec[ColumnMinVolume]),
		Status:    rec[ColumnStatus],
	}
}

// Record renders the rule back into a raw row.
func (r AlertRule) Record() Record {
	return Record{
		ColumnOwner:     r.Owner,
		ColumnSymbol:    r.Symbol,
		ColumnAlertType: string(r.Type),
		ColumnMinPrice:  r.MinPrice.String(),
		ColumnMaxPrice:  r.MaxPrice.String(),
		ColumnMinVolume: r.MinVolume.String(),
		ColumnStatus:    r.Status,
	}
}

// Key identifies a rule across cycles.
func (r AlertRule) Key() string {
	return strings.Join([]string{
		r.Owner,
		r.Symbol,
		string(r.Type),
		r.MinPrice.String(),
		r.MaxPrice.String(),
		r.MinVolume.String(),
	}, "|")
}

func parseNumber(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}
