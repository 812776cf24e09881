package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one form response row from the laundry operations sheet.
type Entry struct {
	Date        time.Time       `json:"date,omitzero"`
	DateRaw     string          `json:"date_raw,omitempty"` // Kept when the Date column could not be parsed
	Name        string          `json:"name,omitempty"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	TotalUnpaid decimal.Decimal `json:"total_unpaid"`
	Loads       int             `json:"loads"`
}

// HasDate reports whether the row carries a parsed date.
func (e Entry) HasDate() bool {
	return !e.Date.IsZero()
}
