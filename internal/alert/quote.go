package alert

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a price snapshot for one ticker. Price and ChangePct carry two
// decimals; Volume is the share count of the latest session.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	ChangePct decimal.Decimal `json:"change_pct"`
	Volume    int64           `json:"volume"`
	AsOf      time.Time       `json:"as_of"`
}
