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

package common

import (
	"context"
	"fmt"

	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/store"

	"go.uber.org/zap"
)

// UserInfo represents simplified user information for command-line utilities
type UserInfo struct {
	Id       string
	Name     string
	Phone    string
	Role     models.Role
	Approved bool
}

// InitializeUsers retrieves users based on an optional phone filter.
// If phoneFilter is provided, returns a single user with that phone number.
// If phoneFilter is empty, returns all users.
func InitializeUsers(ctx context.Context, users store.UserStore, phoneFilter string, logger *zap.Logger) ([]UserInfo, error) {
	var infos []UserInfo

	if phoneFilter != "" {
		logger.Info("Looking up user by phone", zap.String("phone", phoneFilter))
		user, err := users.GetUserByPhone(ctx, phoneFilter)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		infos = append(infos, toUserInfo(*user))
	} else {
		allUsers, err := users.GetUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get users: %w", err)
		}
		for _, u := range allUsers {
			infos = append(infos, toUserInfo(u))
		}
	}

	logger.Info("Retrieved users", zap.Int("count", len(infos)))
	return infos, nil
}

func toUserInfo(u models.User) UserInfo {
	return UserInfo{
		Id:       u.Id,
		Name:     u.Name,
		Phone:    u.Phone,
		Role:     u.Role,
		Approved: u.Approved,
	}
}
