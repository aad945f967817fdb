package database

import (
	"context"
	"testing"

	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestGetBalance_NoBalance(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	balance, err := service.GetBalance(context.Background(), models.ActorSeller, "s-1")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(decimal.Zero) {
		t.Errorf("Expected balance 0, got %s", balance.String())
	}
}

func TestCredit_RejectsNegativeAmount(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.Credit(context.Background(), store.CreditParams{
		ActorType: models.ActorSeller,
		ActorId:   "s-1",
		EntryType: "seller_payment",
		Amount:    decimal.NewFromInt(-1),
	})
	if err == nil {
		t.Fatal("Expected negative credit to be rejected")
	}
}

func TestGetBalances_ByActorType(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	credits := []store.CreditParams{
		{ActorType: models.ActorTransporter, ActorId: "t-2", EntryType: "transport_fee", Amount: decimal.NewFromInt(5000), ExternalRef: "p-1:transport-fee"},
		{ActorType: models.ActorTransporter, ActorId: "t-1", EntryType: "transport_fee", Amount: decimal.NewFromInt(8000), ExternalRef: "p-2:transport-fee"},
		{ActorType: models.ActorSeller, ActorId: "s-1", EntryType: "seller_payment", Amount: decimal.NewFromInt(6000), ExternalRef: "p-2:seller-payment"},
	}
	for _, c := range credits {
		if _, err := service.Credit(ctx, c); err != nil {
			t.Fatalf("Credit failed: %v", err)
		}
	}

	balances, err := service.GetBalances(ctx, models.ActorTransporter)
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("Expected 2 transporter balances, got %d", len(balances))
	}
	if balances[0].ActorId != "t-1" || !balances[0].Balance.Equal(decimal.NewFromInt(8000)) {
		t.Errorf("Expected t-1 with 8000 first, got %s with %s", balances[0].ActorId, balances[0].Balance.String())
	}
	if balances[0].Version != 2 {
		t.Errorf("Expected version 2 after one credit, got %d", balances[0].Version)
	}
}

func TestReconcileBalance(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	for _, ref := range []string{"p-1:seller-payment", "p-2:seller-payment"} {
		_, err := service.Credit(ctx, store.CreditParams{
			ActorType: models.ActorSeller, ActorId: "s-1", EntryType: "seller_payment",
			Amount: decimal.RequireFromString("1234.5"), ExternalRef: ref,
		})
		if err != nil {
			t.Fatalf("Credit failed: %v", err)
		}
	}

	if err := service.ReconcileBalance(ctx, models.ActorSeller, "s-1"); err != nil {
		t.Errorf("Expected reconciliation to pass, got %v", err)
	}

	if _, err := service.db.Exec("UPDATE account_balances SET balance = '1' WHERE actor_id = 's-1'"); err != nil {
		t.Fatalf("Failed to corrupt balance: %v", err)
	}
	if err := service.ReconcileBalance(ctx, models.ActorSeller, "s-1"); err == nil {
		t.Error("Expected reconciliation mismatch after corrupting the balance")
	}
}
