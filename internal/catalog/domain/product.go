package domain

import "time"

// Product carries the inventory counter the order engine reserves against.
// InStock is derived from CurrentStock and kept in step on every adjustment.
type Product struct {
	ID           string
	Name         string
	Description  string
	PriceAmount  int64
	Currency     string
	CurrentStock int32
	InStock      bool
	IsActive     bool
	IsDeleted    bool
	Colors       []Color
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Color is the variant a buyer picks per order line.
type Color struct {
	ID        string
	Name      string
	HexCode   string
	IsActive  bool
	IsDeleted bool
}
