package database

import (
	"context"
	"testing"
	"time"

	"parcel-relay-go/internal/models"
)

func memoryConfig() models.DatabaseConfig {
	return models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  time.Second,
	}
}

func setupTestService(t *testing.T) (*Service, func()) {
	t.Helper()
	service, err := NewService(context.Background(), memoryConfig())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return service, service.Close
}

func TestNewService_ValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.DatabaseConfig)
	}{
		{"empty path", func(c *models.DatabaseConfig) { c.Path = "" }},
		{"zero open conns", func(c *models.DatabaseConfig) { c.MaxOpenConns = 0 }},
		{"negative idle conns", func(c *models.DatabaseConfig) { c.MaxIdleConns = -1 }},
		{"zero ping timeout", func(c *models.DatabaseConfig) { c.PingTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(&cfg)
			if _, err := NewService(context.Background(), cfg); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestNewService_MemoryPinsSingleConnection(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	if got := service.db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("Expected in-memory database to pin 1 connection, got %d", got)
	}

	// Schema must still be visible after the pool has been exercised
	for i := 0; i < 3; i++ {
		if _, err := service.GetUsers(context.Background()); err != nil {
			t.Fatalf("GetUsers failed on iteration %d: %v", i, err)
		}
	}
}
