package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessTransactionParams contains the parameters for recording a ledger entry
type ProcessTransactionParams struct {
	ActorType   models.ActorType
	ActorId     string
	EntryType   string
	Amount      decimal.Decimal
	ExternalRef string
	ParcelId    string
	Reference   string
}

type journalLine struct {
	accountType  string
	accountId    string
	debitAmount  decimal.Decimal
	creditAmount decimal.Decimal
}

// ProcessTransaction atomically updates balance and records the ledger entry
func (s *SubledgerService) ProcessTransaction(ctx context.Context, params ProcessTransactionParams) (*models.LedgerEntry, error) {

	zap.L().Info("Processing ledger entry",
		zap.String("actor_type", string(params.ActorType)),
		zap.String("actor_id", params.ActorId),
		zap.String("type", params.EntryType),
		zap.String("amount", params.Amount.String()),
		zap.String("external_ref", params.ExternalRef))

	// Check for duplicate external reference
	if params.ExternalRef != "" {
		var existingId string
		err := s.db.QueryRowContext(ctx, queryCheckDuplicateEntry, params.ExternalRef).Scan(&existingId)
		if err == nil {
			zap.L().Warn("Duplicate external reference detected, skipping",
				zap.String("external_ref", params.ExternalRef),
				zap.String("existing_entry_id", existingId))
			return nil, fmt.Errorf("%w: external_ref %s already exists", store.ErrDuplicateTransaction, params.ExternalRef)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check for duplicate entry: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentBalanceStr string
	var accountId string
	var version int64

	err = tx.QueryRowContext(ctx, queryGetAccountBalance, params.ActorType, params.ActorId).Scan(&accountId, &currentBalanceStr, &version)

	var currentBalance decimal.Decimal
	if errors.Is(err, sql.ErrNoRows) {
		accountId = uuid.New().String()
		currentBalance = decimal.Zero
		version = 1

		_, err = tx.ExecContext(ctx, queryInsertAccountBalance, accountId, params.ActorType, params.ActorId, "0", 1)
		if err != nil {
			return nil, fmt.Errorf("failed to create account balance: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	} else {
		currentBalance, err = decimal.NewFromString(currentBalanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
		}
	}

	newBalance := currentBalance.Add(params.Amount)

	entry := &models.LedgerEntry{
		Id:            uuid.New().String(),
		ActorType:     params.ActorType,
		ActorId:       params.ActorId,
		EntryType:     params.EntryType,
		Amount:        params.Amount,
		BalanceBefore: currentBalance,
		BalanceAfter:  newBalance,
		ExternalRef:   params.ExternalRef,
		ParcelId:      params.ParcelId,
		Reference:     params.Reference,
		CreatedAt:     time.Now(),
	}

	_, err = tx.ExecContext(ctx, queryInsertLedgerEntry,
		entry.Id, entry.ActorType, entry.ActorId, entry.EntryType,
		entry.Amount.String(), entry.BalanceBefore.String(), entry.BalanceAfter.String(),
		entry.ExternalRef, entry.ParcelId, entry.Reference, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	// Update account balance (with optimistic locking)
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, newBalance.String(), entry.Id, params.ActorType, params.ActorId, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	if err := s.addJournalEntries(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Ledger entry processed successfully",
		zap.String("entry_id", entry.Id),
		zap.String("actor_type", string(params.ActorType)),
		zap.String("actor_id", params.ActorId),
		zap.String("old_balance", currentBalance.String()),
		zap.String("new_balance", newBalance.String()))

	return entry, nil
}

// addJournalEntries creates double-entry bookkeeping entries. A release moves
// money out of parcel escrow (debit) into the actor's payable account (credit).
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, entry *models.LedgerEntry) error {
	lines := []journalLine{
		{"escrow", entry.ParcelId, entry.Amount, decimal.Zero},
		{fmt.Sprintf("%s_payable", entry.ActorType), entry.ActorId, decimal.Zero, entry.Amount},
	}

	for _, line := range lines {
		_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), entry.Id, line.accountType, line.accountId, line.debitAmount.String(), line.creditAmount.String())
		if err != nil {
			return err
		}
	}

	return nil
}

// GetLedgerEntries returns paginated ledger entries for an actor, newest first
func (s *SubledgerService) GetLedgerEntries(ctx context.Context, actorType models.ActorType, actorId string, limit, offset int) ([]models.LedgerEntry, error) {
	zap.L().Debug("Getting ledger entries",
		zap.String("actor_type", string(actorType)),
		zap.String("actor_id", actorId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetLedgerEntries, actorType, actorId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var amountStr, balanceBeforeStr, balanceAfterStr string
		err := rows.Scan(&e.Id, &e.ActorType, &e.ActorId, &e.EntryType,
			&amountStr, &balanceBeforeStr, &balanceAfterStr,
			&e.ExternalRef, &e.ParcelId, &e.Reference, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		if e.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		if e.BalanceBefore, err = decimal.NewFromString(balanceBeforeStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance before '%s': %w", balanceBeforeStr, err)
		}
		if e.BalanceAfter, err = decimal.NewFromString(balanceAfterStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance after '%s': %w", balanceAfterStr, err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during ledger row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return entries, nil
}
