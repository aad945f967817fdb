package common

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"parcel-relay-go/internal/auth"
	"parcel-relay-go/internal/database"
	"parcel-relay-go/internal/lifecycle"
	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/schedule"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

const nameLookupTimeout = 500 * time.Millisecond

type Services struct {
	DbService   *database.Service
	AuthService *auth.Service
	Session     *lifecycle.Session
	Network     models.NetworkConfig
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the store, loads the depot network and starts a
// lifecycle session on the given scheduler.
func InitializeServices(ctx context.Context, cfg *models.Config, scheduler schedule.Scheduler) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Loading depot network", zap.String("file", cfg.Simulation.NetworkFile))
	network, err := LoadNetworkConfig(cfg.Simulation.NetworkFile)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	authService := auth.NewService(dbService)
	session, err := lifecycle.NewSession(cfg.Simulation, lifecycle.Deps{
		Store:     dbService,
		Scheduler: scheduler,
		Network:   network,
		Names: func(actorId string) string {
			lookupCtx, cancel := context.WithTimeout(context.Background(), nameLookupTimeout)
			defer cancel()
			return authService.DisplayName(lookupCtx, actorId)
		},
	})
	if err != nil {
		dbService.Close()
		return nil, fmt.Errorf("unable to start lifecycle session: %w", err)
	}

	zap.L().Info("Services initialized",
		zap.Int("depots", len(network.Depots)),
		zap.Int("fallback_transporters", len(network.FallbackRoster)))

	return &Services{
		DbService:   dbService,
		AuthService: authService,
		Session:     session,
		Network:     network,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service without a session
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.Session != nil {
		cs.Session.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
