package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"parcel-relay-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// historyRow is the persisted shape of a history entry; the parcel snapshot is stored as JSON
type historyRow struct {
	Id         string          `db:"id"`
	Kind       string          `db:"kind"`
	ParcelId   string          `db:"parcel_id"`
	ActorId    string          `db:"actor_id"`
	Amount     decimal.Decimal `db:"amount"`
	Snapshot   string          `db:"snapshot"`
	RecordedAt time.Time       `db:"recorded_at"`
}

func (s *Service) RecordHistory(ctx context.Context, entry models.HistoryEntry) error {
	snapshot, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("unable to encode parcel snapshot: %w", err)
	}

	row := historyRow{
		Id:         entry.Id,
		Kind:       string(entry.Kind),
		ParcelId:   entry.ParcelId,
		ActorId:    entry.ActorId,
		Amount:     entry.Amount,
		Snapshot:   string(snapshot),
		RecordedAt: entry.RecordedAt,
	}
	if _, err := s.dbx.NamedExecContext(ctx, queryInsertHistory, row); err != nil {
		zap.L().Error("Failed to archive history entry", zap.String("parcel_id", entry.ParcelId), zap.Error(err))
		return fmt.Errorf("unable to insert history entry: %w", err)
	}

	zap.L().Debug("Archived history entry",
		zap.String("kind", row.Kind),
		zap.String("parcel_id", row.ParcelId))
	return nil
}

func (s *Service) GetHistory(ctx context.Context, limit, offset int) ([]models.HistoryEntry, error) {
	var rows []historyRow
	if err := s.dbx.SelectContext(ctx, &rows, queryGetHistory, limit, offset); err != nil {
		return nil, fmt.Errorf("unable to query history: %w", err)
	}

	entries := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		var snapshot models.Parcel
		if err := json.Unmarshal([]byte(row.Snapshot), &snapshot); err != nil {
			return nil, fmt.Errorf("unable to decode snapshot for %s: %w", row.Id, err)
		}
		entries = append(entries, models.HistoryEntry{
			Id:         row.Id,
			Kind:       models.HistoryKind(row.Kind),
			ParcelId:   row.ParcelId,
			ActorId:    row.ActorId,
			Amount:     row.Amount,
			Snapshot:   snapshot,
			RecordedAt: row.RecordedAt,
		})
	}
	return entries, nil
}
