// Package ledger releases escrowed parcel payments into seller and transporter
// balances. Releases are idempotent: a paid flag on the parcel and a unique
// external reference in the store both guard against double credit.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"parcel-relay-go/internal/feed"
	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	EntryTransportFee  = "transport_fee"
	EntrySellerPayment = "seller_payment"
)

type Ledger struct {
	store store.LedgerStore
	feed  *feed.Feed
}

func New(s store.LedgerStore, f *feed.Feed) *Ledger {
	return &Ledger{store: s, feed: f}
}

// TransportFeeRef is the external reference of a parcel's transporter release.
func TransportFeeRef(parcelId string) string {
	return parcelId + ":transport-fee"
}

// SellerPaymentRef is the external reference of a parcel's seller release.
func SellerPaymentRef(parcelId string) string {
	return parcelId + ":seller-payment"
}

// ReleaseTransporterFee credits the parcel's transport fee to transporterId.
// p must be the live record held under the registry lock.
func (l *Ledger) ReleaseTransporterFee(ctx context.Context, p *models.Parcel, transporterId string) (models.ReleaseResult, error) {
	if p.Transaction.TransporterPaid {
		return models.ReleaseResult{}, nil
	}
	if transporterId == "" || transporterId == models.CompetitorId {
		return models.ReleaseResult{}, fmt.Errorf("%w: parcel %s has no transporter to pay", models.ErrUnavailable, p.Id)
	}

	entry, err := l.store.Credit(ctx, store.CreditParams{
		ActorType:   models.ActorTransporter,
		ActorId:     transporterId,
		EntryType:   EntryTransportFee,
		Amount:      p.Transaction.TransportFee,
		ExternalRef: TransportFeeRef(p.Id),
		ParcelId:    p.Id,
		Reference:   p.Title,
	})
	if errors.Is(err, store.ErrDuplicateTransaction) {
		zap.L().Warn("Transport fee already credited, marking paid",
			zap.String("parcel_id", p.Id),
			zap.String("transporter_id", transporterId))
		p.Transaction.TransporterPaid = true
		return models.ReleaseResult{}, nil
	}
	if err != nil {
		return models.ReleaseResult{}, fmt.Errorf("unable to release transport fee for %s: %w", p.Id, err)
	}

	p.Transaction.TransporterPaid = true

	payee := transporterId
	if p.ClaimedBy == transporterId && p.ClaimedByName != "" {
		payee = p.ClaimedByName
	}
	l.feed.Notify(models.NotifyTransporterPaid, p.Id,
		fmt.Sprintf("Transport fee of %s released to %s for %q", p.Transaction.TransportFee.String(), payee, p.Title))
	l.feed.Record(ctx, models.HistoryTransporterPaid, *p, transporterId, p.Transaction.TransportFee)

	return models.ReleaseResult{
		Released:   true,
		ActorId:    transporterId,
		Amount:     entry.Amount,
		NewBalance: entry.BalanceAfter,
	}, nil
}

// ReleaseSellerPayment credits the parcel's seller amount and lifts the escrow hold.
// p must be the live record held under the registry lock.
func (l *Ledger) ReleaseSellerPayment(ctx context.Context, p *models.Parcel) (models.ReleaseResult, error) {
	if p.Transaction.SellerPaid {
		return models.ReleaseResult{}, nil
	}

	entry, err := l.store.Credit(ctx, store.CreditParams{
		ActorType:   models.ActorSeller,
		ActorId:     p.SellerId,
		EntryType:   EntrySellerPayment,
		Amount:      p.Transaction.SellerAmount,
		ExternalRef: SellerPaymentRef(p.Id),
		ParcelId:    p.Id,
		Reference:   p.Title,
	})
	if errors.Is(err, store.ErrDuplicateTransaction) {
		zap.L().Warn("Seller payment already credited, marking paid",
			zap.String("parcel_id", p.Id),
			zap.String("seller_id", p.SellerId))
		p.Transaction.SellerPaid = true
		p.Transaction.Held = false
		return models.ReleaseResult{}, nil
	}
	if err != nil {
		return models.ReleaseResult{}, fmt.Errorf("unable to release seller payment for %s: %w", p.Id, err)
	}

	p.Transaction.SellerPaid = true
	p.Transaction.Held = false

	l.feed.Notify(models.NotifySellerPaid, p.Id,
		fmt.Sprintf("Payment of %s released to seller %s for %q", p.Transaction.SellerAmount.String(), p.SellerId, p.Title))
	l.feed.Record(ctx, models.HistorySellerPaid, *p, p.SellerId, p.Transaction.SellerAmount)

	return models.ReleaseResult{
		Released:   true,
		ActorId:    p.SellerId,
		Amount:     entry.Amount,
		NewBalance: entry.BalanceAfter,
	}, nil
}

// Balances returns actor id to balance for one actor type.
func (l *Ledger) Balances(ctx context.Context, actorType models.ActorType) (map[string]decimal.Decimal, error) {
	rows, err := l.store.GetBalances(ctx, actorType)
	if err != nil {
		return nil, fmt.Errorf("unable to load %s balances: %w", actorType, err)
	}

	result := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		result[row.ActorId] = row.Balance
	}
	return result, nil
}

func (l *Ledger) Balance(ctx context.Context, actorType models.ActorType, actorId string) (decimal.Decimal, error) {
	return l.store.GetBalance(ctx, actorType, actorId)
}

// Entries returns an actor's credits, newest first.
func (l *Ledger) Entries(ctx context.Context, actorType models.ActorType, actorId string, limit, offset int) ([]models.LedgerRecord, error) {
	entries, err := l.store.GetLedgerEntries(ctx, actorType, actorId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("unable to load ledger entries: %w", err)
	}

	records := make([]models.LedgerRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, models.LedgerRecord{
			Id:           e.Id,
			Type:         e.EntryType,
			ParcelId:     e.ParcelId,
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			ProcessedAt:  e.CreatedAt,
		})
	}
	return records, nil
}

// Reconcile checks that an actor's balance equals the sum of its entries.
func (l *Ledger) Reconcile(ctx context.Context, actorType models.ActorType, actorId string) error {
	return l.store.ReconcileBalance(ctx, actorType, actorId)
}
