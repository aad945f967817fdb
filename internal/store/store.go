package store

import (
	"context"
	"errors"

	"parcel-relay-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// CreditParams contains the parameters for crediting an actor's balance.
type CreditParams struct {
	ActorType   models.ActorType
	ActorId     string
	EntryType   string // transport_fee, seller_payment
	Amount      decimal.Decimal
	ExternalRef string // unique per release; a repeat is rejected with ErrDuplicateTransaction
	ParcelId    string
	Reference   string
}

// CreateUserParams contains the parameters for registering a user.
type CreateUserParams struct {
	Name         string
	Phone        string
	Role         models.Role
	PasswordHash string
	Approved     bool
}

// LedgerStore defines the contract the ledger and history archive persist through.
type LedgerStore interface {
	// --- Balances ---
	Credit(ctx context.Context, params CreditParams) (*models.LedgerEntry, error)
	GetBalance(ctx context.Context, actorType models.ActorType, actorId string) (decimal.Decimal, error)
	GetBalances(ctx context.Context, actorType models.ActorType) ([]models.AccountBalance, error)
	GetLedgerEntries(ctx context.Context, actorType models.ActorType, actorId string, limit, offset int) ([]models.LedgerEntry, error)
	ReconcileBalance(ctx context.Context, actorType models.ActorType, actorId string) error

	// --- History ---
	RecordHistory(ctx context.Context, entry models.HistoryEntry) error
	GetHistory(ctx context.Context, limit, offset int) ([]models.HistoryEntry, error)

	// --- Lifecycle ---
	Close()
}

// UserStore defines the contract the auth service persists users and tokens through.
type UserStore interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	ApproveUser(ctx context.Context, userId string) error
	StoreToken(ctx context.Context, token, userId string) error
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
}
