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
	"errors"
	"fmt"
	"time"

	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	var users []models.User
	if err := s.dbx.SelectContext(ctx, &users, queryGetUsers); err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))
	return s.getUser(ctx, queryGetUserById, userId)
}

func (s *Service) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	zap.L().Debug("Querying user by phone", zap.String("phone", phone))
	return s.getUser(ctx, queryGetUserByPhone, phone)
}

func (s *Service) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserByToken, token)
}

func (s *Service) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	var user models.User
	if err := s.dbx.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, arg)
		}
		zap.L().Error("Failed to query user", zap.Error(err))
		return nil, fmt.Errorf("unable to query user: %w", err)
	}
	return &user, nil
}

func (s *Service) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.User, error) {
	userId := uuid.New().String()
	now := time.Now().UTC()
	zap.L().Info("Creating user",
		zap.String("id", userId),
		zap.String("name", params.Name),
		zap.String("role", string(params.Role)))

	result, err := s.db.ExecContext(ctx, queryInsertUser,
		userId, params.Name, params.Phone, params.Role, params.PasswordHash, params.Approved, now, now)
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("phone", params.Phone), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: phone %s already registered", models.ErrDuplicate, params.Phone)
	}

	zap.L().Info("User created successfully", zap.String("id", userId), zap.String("name", params.Name))
	return s.GetUserById(ctx, userId)
}

func (s *Service) ApproveUser(ctx context.Context, userId string) error {
	result, err := s.db.ExecContext(ctx, queryApproveUser, userId)
	if err != nil {
		return fmt.Errorf("unable to approve user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: user %s", models.ErrNotFound, userId)
	}

	zap.L().Info("User approved", zap.String("user_id", userId))
	return nil
}

func (s *Service) StoreToken(ctx context.Context, token, userId string) error {
	if _, err := s.db.ExecContext(ctx, queryInsertToken, token, userId); err != nil {
		return fmt.Errorf("unable to store token: %w", err)
	}
	return nil
}
