package store

import (
	"errors"
	"fmt"
	"testing"
)

// Compile-time checks that the contracts are importable and usable.
func TestStoreContractsExist(t *testing.T) {
	_ = CreditParams{}
	_ = CreateUserParams{}

	var _ LedgerStore
	var _ UserStore
}

func TestSentinelErrorsWrap(t *testing.T) {
	err := fmt.Errorf("%w: external_ref p-1:transport-fee already exists", ErrDuplicateTransaction)
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Errorf("Expected wrapped duplicate error to match")
	}
	if errors.Is(err, ErrConcurrentModification) {
		t.Errorf("Unexpected match on concurrent modification")
	}
}
