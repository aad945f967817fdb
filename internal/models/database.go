package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the marketplace role a user registers with
type Role string

const (
	RoleBuyer       Role = "buyer"
	RoleSeller      Role = "seller"
	RoleTransporter Role = "transporter"
	RoleAdmin       Role = "admin"
)

// ActorType selects one of the two balance mappings kept by the ledger
type ActorType string

const (
	ActorSeller      ActorType = "seller"
	ActorTransporter ActorType = "transporter"
)

// User represents a registered marketplace user
type User struct {
	Id           string    `db:"id"`
	Name         string    `db:"name"`
	Phone        string    `db:"phone"`
	Role         Role      `db:"role"`
	PasswordHash string    `db:"password_hash"`
	Approved     bool      `db:"approved"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// AccountBalance represents current balance state (hot data)
type AccountBalance struct {
	Id              string          `db:"id"`
	ActorType       ActorType       `db:"actor_type"`
	ActorId         string          `db:"actor_id"`
	Balance         decimal.Decimal `db:"balance"`
	LastLedgerEntry string          `db:"last_entry_id"`
	Version         int64           `db:"version"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// LedgerEntry represents an immutable credit in the journal (cold data)
type LedgerEntry struct {
	Id            string          `db:"id"`
	ActorType     ActorType       `db:"actor_type"`
	ActorId       string          `db:"actor_id"`
	EntryType     string          `db:"entry_type"`
	Amount        decimal.Decimal `db:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	ExternalRef   string          `db:"external_ref"`
	ParcelId      string          `db:"parcel_id"`
	Reference     string          `db:"reference"`
	CreatedAt     time.Time       `db:"created_at"`
}
