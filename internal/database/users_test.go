package database

import (
	"context"
	"errors"
	"testing"

	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/store"
)

func TestCreateUser_DuplicatePhone(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	params := store.CreateUserParams{
		Name:         "Sari",
		Phone:        "+62811000001",
		Role:         models.RoleSeller,
		PasswordHash: "hash",
	}

	user, err := service.CreateUser(ctx, params)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Id == "" || user.Role != models.RoleSeller || user.Approved {
		t.Errorf("Unexpected user: %+v", user)
	}

	_, err = service.CreateUser(ctx, params)
	if !errors.Is(err, models.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestApproveUser(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user, err := service.CreateUser(ctx, store.CreateUserParams{
		Name: "Budi", Phone: "+62811000002", Role: models.RoleTransporter, PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := service.ApproveUser(ctx, user.Id); err != nil {
		t.Fatalf("ApproveUser failed: %v", err)
	}

	got, err := service.GetUserByPhone(ctx, "+62811000002")
	if err != nil {
		t.Fatalf("GetUserByPhone failed: %v", err)
	}
	if !got.Approved {
		t.Error("Expected user to be approved")
	}

	if err := service.ApproveUser(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTokens(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	user, err := service.CreateUser(ctx, store.CreateUserParams{
		Name: "Ayu", Phone: "+62811000003", Role: models.RoleBuyer, PasswordHash: "hash", Approved: true,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := service.StoreToken(ctx, "tok-1", user.Id); err != nil {
		t.Fatalf("StoreToken failed: %v", err)
	}

	got, err := service.GetUserByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetUserByToken failed: %v", err)
	}
	if got.Id != user.Id {
		t.Errorf("Expected user %s, got %s", user.Id, got.Id)
	}

	if _, err := service.GetUserByToken(ctx, "tok-unknown"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	users, err := service.GetUsers(ctx)
	if err != nil {
		t.Fatalf("GetUsers failed: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("Expected 1 user, got %d", len(users))
	}
}
