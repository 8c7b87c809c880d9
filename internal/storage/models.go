package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position is one tracked holding. Reference price and quantity are fixed at
// recording time; establishing a new basis means recording a new transaction.
type Position struct {
	ID             uuid.UUID
	Code           string
	Name           string
	ReferencePrice decimal.Decimal
	Quantity       int64
	CreatedAt      time.Time
}

// PriceSample is one observed market price for an instrument.
type PriceSample struct {
	ID         int64
	Code       string
	Name       string
	Price      decimal.Decimal
	RecordedAt time.Time
}
