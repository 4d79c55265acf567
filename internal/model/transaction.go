package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single charge or credit read from a bank feed.
type Transaction struct {
	Name   string
	Amount decimal.Decimal // sign is significant: -9.99 and 9.99 differ
	Date   time.Time
}
