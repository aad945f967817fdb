package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parcel-relay-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetBalance returns the current balance for an actor (O(1) lookup)
func (s *SubledgerService) GetBalance(ctx context.Context, actorType models.ActorType, actorId string) (decimal.Decimal, error) {
	zap.L().Debug("Getting balance", zap.String("actor_type", string(actorType)), zap.String("actor_id", actorId))

	var balanceStr string
	err := s.db.QueryRowContext(ctx, queryGetBalance, actorType, actorId).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		// No balance record means zero balance
		return decimal.Zero, nil
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("actor_id", actorId), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		zap.L().Error("Failed to parse balance", zap.String("balance_str", balanceStr), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to parse balance: %w", err)
	}

	return balance, nil
}

// GetAllBalances returns every balance held for one actor type, ordered by actor id
func (s *SubledgerService) GetAllBalances(ctx context.Context, actorType models.ActorType) ([]models.AccountBalance, error) {
	zap.L().Debug("Getting all balances", zap.String("actor_type", string(actorType)))

	rows, err := s.db.QueryContext(ctx, queryGetAllBalances, actorType)
	if err != nil {
		zap.L().Error("Failed to get all balances", zap.String("actor_type", string(actorType)), zap.Error(err))
		return nil, fmt.Errorf("failed to get all balances: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var balances []models.AccountBalance
	for rows.Next() {
		var balance models.AccountBalance
		var balanceStr string
		err := rows.Scan(&balance.Id, &balance.ActorType, &balance.ActorId, &balanceStr,
			&balance.LastLedgerEntry, &balance.Version, &balance.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}

		balance.Balance, err = decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
		}

		balances = append(balances, balance)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during balance row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	zap.L().Debug("Retrieved all balances", zap.String("actor_type", string(actorType)), zap.Int("count", len(balances)))
	return balances, nil
}

// ReconcileBalance verifies that the current balance matches the sum of all ledger entries.
// Amounts are stored as text, so the sum is taken in decimal rather than by SQLite.
func (s *SubledgerService) ReconcileBalance(ctx context.Context, actorType models.ActorType, actorId string) error {
	zap.L().Info("Reconciling balance", zap.String("actor_type", string(actorType)), zap.String("actor_id", actorId))

	currentBalance, err := s.GetBalance(ctx, actorType, actorId)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryReconcileBalance, actorType, actorId)
	if err != nil {
		return fmt.Errorf("failed to load ledger entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	calculatedBalance := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		calculatedBalance = calculatedBalance.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating ledger rows: %w", err)
	}

	if !currentBalance.Equal(calculatedBalance) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("actor_type", string(actorType)),
			zap.String("actor_id", actorId),
			zap.String("current_balance", currentBalance.String()),
			zap.String("calculated_balance", calculatedBalance.String()),
			zap.String("difference", currentBalance.Sub(calculatedBalance).String()))
		return fmt.Errorf("balance mismatch: current=%s, calculated=%s", currentBalance.String(), calculatedBalance.String())
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("actor_type", string(actorType)),
		zap.String("actor_id", actorId),
		zap.String("balance", currentBalance.String()))
	return nil
}
