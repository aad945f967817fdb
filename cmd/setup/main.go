package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"parcel-relay-go/internal/auth"
	"parcel-relay-go/internal/common"
	"parcel-relay-go/internal/config"
	"parcel-relay-go/internal/models"

	"go.uber.org/zap"
)

type demoAccount struct {
	name  string
	phone string
	role  models.Role
}

var demoAccounts = []demoAccount{
	{"Ibu Sari", "081200000001", models.RoleSeller},
	{"Budi", "081200000002", models.RoleBuyer},
	{"Mas Agus", "081200000003", models.RoleTransporter},
	{"Pak Joko", "081200000004", models.RoleTransporter},
}

// ensureAdmin creates the admin account unless one with the phone already exists
func ensureAdmin(ctx context.Context, authService *auth.Service, name, phone, password string) error {
	user, err := authService.CreateAdmin(ctx, name, phone, password)
	if errors.Is(err, models.ErrDuplicate) {
		zap.L().Info("Admin already exists", zap.String("phone", phone))
		return nil
	}
	if err != nil {
		return fmt.Errorf("error creating admin: %w", err)
	}

	zap.L().Info("Created admin", zap.String("id", user.Id), zap.String("phone", user.Phone))
	return nil
}

func seedDemoAccounts(ctx context.Context, authService *auth.Service, password string) (created int, failed []string) {
	for _, account := range demoAccounts {
		user, err := authService.Register(ctx, account.name, account.phone, password, account.role)
		if errors.Is(err, models.ErrDuplicate) {
			zap.L().Info("Demo account already exists", zap.String("phone", account.phone))
			continue
		}
		if err != nil {
			zap.L().Error("Error registering demo account",
				zap.String("name", account.name),
				zap.Error(err))
			failed = append(failed, account.name)
			continue
		}

		if !user.Approved {
			if err := authService.Approve(ctx, user.Id); err != nil {
				zap.L().Error("Error approving demo account", zap.String("id", user.Id), zap.Error(err))
				failed = append(failed, account.name)
				continue
			}
		}
		created++
	}
	return created, failed
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	adminName := flag.String("admin-name", "Depot Admin", "Display name of the admin account")
	adminPhone := flag.String("admin-phone", "", "Phone number of the admin account (required)")
	adminPassword := flag.String("admin-password", "", "Password of the admin account (required)")
	demoFlag := flag.Bool("demo", false, "Also register approved demo seller, buyer and transporter accounts")
	flag.Parse()

	if *adminPhone == "" || *adminPassword == "" {
		logger.Fatal("Flags are required: --admin-phone and --admin-password")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Validating depot network", zap.String("file", cfg.Simulation.NetworkFile))
	network, err := common.LoadNetworkConfig(cfg.Simulation.NetworkFile)
	if err != nil {
		logger.Fatal("Failed to load network config", zap.Error(err))
	}

	logger.Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	authService := auth.NewService(dbService)
	if err := ensureAdmin(ctx, authService, *adminName, *adminPhone, *adminPassword); err != nil {
		logger.Fatal("Failed to create admin", zap.Error(err))
	}

	if *demoFlag {
		created, failed := seedDemoAccounts(ctx, authService, *adminPassword)
		if len(failed) > 0 {
			logger.Warn("Demo seeding completed with some failures",
				zap.Int("created", created),
				zap.Strings("failed", failed))
		} else {
			logger.Info("Demo seeding completed", zap.Int("created", created))
		}
	}

	users, err := common.InitializeUsers(ctx, dbService, "", logger)
	if err != nil {
		logger.Fatal("Failed to list users", zap.Error(err))
	}

	common.PrintHeader("SETUP SUMMARY", common.DefaultWidth)
	fmt.Printf("Depots:                %d\n", len(network.Depots))
	fmt.Printf("Fallback transporters: %d\n", len(network.FallbackRoster))
	fmt.Printf("Users:                 %d\n", len(users))
	for i, u := range users {
		fmt.Printf("%s %-20s %-12s %-14s approved=%t\n", common.BoxPrefix(i == len(users)-1), u.Name, u.Role, u.Phone, u.Approved)
	}
	common.PrintFooter("Setup complete", common.DefaultWidth)
}
