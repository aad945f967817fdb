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
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"regexp"

	"parcel-relay-go/internal/auth"
	"parcel-relay-go/internal/common"
	"parcel-relay-go/internal/config"
	"parcel-relay-go/internal/models"

	"go.uber.org/zap"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

func validatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone cannot be empty")
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("invalid phone format: %s", phone)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func validateRole(role string) (models.Role, error) {
	switch r := models.Role(role); r {
	case models.RoleBuyer, models.RoleSeller, models.RoleTransporter, models.RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role: %s", role)
	}
}

func createUser(ctx context.Context, authService *auth.Service, name, phone, password string, role models.Role, approve bool) (*models.User, error) {
	if role == models.RoleAdmin {
		return authService.CreateAdmin(ctx, name, phone, password)
	}

	user, err := authService.Register(ctx, name, phone, password, role)
	if err != nil {
		return nil, err
	}

	if approve && !user.Approved {
		if err := authService.Approve(ctx, user.Id); err != nil {
			return nil, fmt.Errorf("user created but approval failed: %w", err)
		}
		user.Approved = true
	}
	return user, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "User's display name (required)")
	phoneFlag := flag.String("phone", "", "User's phone number, used to log in (required)")
	passwordFlag := flag.String("password", "", "Initial password (required)")
	roleFlag := flag.String("role", string(models.RoleBuyer), "Role: buyer, seller, transporter or admin")
	approveFlag := flag.Bool("approve", false, "Approve seller and transporter accounts immediately")
	flag.Parse()

	if *nameFlag == "" || *phoneFlag == "" || *passwordFlag == "" {
		zap.L().Fatal("Flags are required: --name, --phone and --password")
	}

	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}
	if err := validatePhone(*phoneFlag); err != nil {
		zap.L().Fatal("Invalid phone", zap.Error(err))
	}
	role, err := validateRole(*roleFlag)
	if err != nil {
		zap.L().Fatal("Invalid role", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	zap.L().Info("Creating user",
		zap.String("name", *nameFlag),
		zap.String("phone", *phoneFlag),
		zap.String("role", string(role)))

	user, err := createUser(ctx, auth.NewService(dbService), *nameFlag, *phoneFlag, *passwordFlag, role, *approveFlag)
	if err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			zap.L().Fatal("User already exists with this phone", zap.String("phone", *phoneFlag))
		}
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	fmt.Println()
	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:       %s\n", user.Id)
	fmt.Printf("Name:     %s\n", user.Name)
	fmt.Printf("Phone:    %s\n", user.Phone)
	fmt.Printf("Role:     %s\n", user.Role)
	fmt.Printf("Approved: %t\n", user.Approved)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	if !user.Approved {
		fmt.Println("Account is pending approval by an admin")
	}

	zap.L().Info("User created successfully", zap.String("id", user.Id))
}
