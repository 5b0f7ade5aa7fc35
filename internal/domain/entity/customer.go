package entity

import "time"

// Customer cliente con saldo de puntos de fidelización.
type Customer struct {
	ID            string
	Name          string
	LoyaltyPoints int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
