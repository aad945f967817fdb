/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"

	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/store"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time checks: *Service must satisfy both store contracts.
var (
	_ store.LedgerStore = (*Service)(nil)
	_ store.UserStore   = (*Service)(nil)
)

const memoryPath = ":memory:"

type Service struct {
	db        *sql.DB
	dbx       *sqlx.DB
	subledger *SubledgerService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	if cfg.Path == memoryPath {
		// every connection to :memory: is a separate database, so pin a single one forever
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newServiceFromDB(db)
	if err := service.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	if err := service.subledger.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize subledger schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newServiceFromDB(db *sql.DB) *Service {
	return &Service{
		db:        db,
		dbx:       sqlx.NewDb(db, "sqlite3"),
		subledger: NewSubledgerService(db),
	}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Create users table
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		approved BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Create index on phone for login lookups
	CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone);
	-- Create index on role for approval queues
	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

	-- Bearer tokens issued on login
	CREATE TABLE IF NOT EXISTS auth_tokens (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_auth_tokens_user_id ON auth_tokens(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Subledger convenience methods

func (s *Service) GetBalance(ctx context.Context, actorType models.ActorType, actorId string) (decimal.Decimal, error) {
	return s.subledger.GetBalance(ctx, actorType, actorId)
}

func (s *Service) GetBalances(ctx context.Context, actorType models.ActorType) ([]models.AccountBalance, error) {
	return s.subledger.GetAllBalances(ctx, actorType)
}

func (s *Service) GetLedgerEntries(ctx context.Context, actorType models.ActorType, actorId string, limit, offset int) ([]models.LedgerEntry, error) {
	return s.subledger.GetLedgerEntries(ctx, actorType, actorId, limit, offset)
}

func (s *Service) ReconcileBalance(ctx context.Context, actorType models.ActorType, actorId string) error {
	return s.subledger.ReconcileBalance(ctx, actorType, actorId)
}

// Credit adds a released payment to an actor's balance. Balances are additive
// only, so negative amounts are rejected.
func (s *Service) Credit(ctx context.Context, params store.CreditParams) (*models.LedgerEntry, error) {
	if params.ActorId == "" {
		return nil, fmt.Errorf("actor id is required")
	}
	if params.Amount.IsNegative() {
		return nil, fmt.Errorf("credit amount cannot be negative, got %s", params.Amount.String())
	}

	entry, err := s.subledger.ProcessTransaction(ctx, ProcessTransactionParams{
		ActorType:   params.ActorType,
		ActorId:     params.ActorId,
		EntryType:   params.EntryType,
		Amount:      params.Amount,
		ExternalRef: params.ExternalRef,
		ParcelId:    params.ParcelId,
		Reference:   params.Reference,
	})
	if err != nil {
		return nil, fmt.Errorf("error processing credit: %w", err)
	}

	zap.L().Info("Credit processed successfully",
		zap.String("actor_type", string(params.ActorType)),
		zap.String("actor_id", params.ActorId),
		zap.String("parcel_id", params.ParcelId),
		zap.String("amount", params.Amount.String()),
		zap.String("new_balance", entry.BalanceAfter.String()))

	return entry, nil
}
