// Package feed keeps the session's notification feed and history archive.
// Both are append-only and list newest first.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parcel-relay-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Archiver durably records history entries.
type Archiver interface {
	RecordHistory(ctx context.Context, entry models.HistoryEntry) error
}

type Feed struct {
	mu            sync.RWMutex
	now           func() time.Time
	archiver      Archiver
	notifications []models.Notification
	history       []models.HistoryEntry
}

// New creates an empty feed. archiver may be nil.
func New(now func() time.Time, archiver Archiver) *Feed {
	if now == nil {
		now = time.Now
	}
	return &Feed{now: now, archiver: archiver}
}

// Notify prepends a notification and returns it.
func (f *Feed) Notify(kind models.NotificationType, parcelId, text string) models.Notification {
	n := models.Notification{
		Id:        uuid.New().String(),
		Text:      text,
		Type:      kind,
		ParcelId:  parcelId,
		CreatedAt: f.now(),
	}

	f.mu.Lock()
	f.notifications = append([]models.Notification{n}, f.notifications...)
	f.mu.Unlock()

	zap.L().Debug("Notification emitted",
		zap.String("type", string(kind)),
		zap.String("parcel_id", parcelId),
		zap.String("text", text))
	return n
}

// Notifications returns a copy of the feed, newest first.
func (f *Feed) Notifications() []models.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make([]models.Notification, len(f.notifications))
	copy(result, f.notifications)
	return result
}

// MarkRead flags a notification as read.
func (f *Feed) MarkRead(notificationId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.notifications {
		if f.notifications[i].Id == notificationId {
			f.notifications[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("%w: notification %s", models.ErrNotFound, notificationId)
}

// Unread counts notifications not yet marked read.
func (f *Feed) Unread() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	count := 0
	for _, n := range f.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// Record prepends a terminal snapshot of p to the history archive and hands
// it to the archiver. Archiver failures are logged, not returned.
func (f *Feed) Record(ctx context.Context, kind models.HistoryKind, p models.Parcel, actorId string, amount decimal.Decimal) models.HistoryEntry {
	entry := models.HistoryEntry{
		Id:         uuid.New().String(),
		Kind:       kind,
		ParcelId:   p.Id,
		ActorId:    actorId,
		Amount:     amount,
		Snapshot:   p,
		RecordedAt: f.now(),
	}

	f.mu.Lock()
	f.history = append([]models.HistoryEntry{entry}, f.history...)
	f.mu.Unlock()

	if f.archiver != nil {
		if err := f.archiver.RecordHistory(ctx, entry); err != nil {
			zap.L().Warn("Failed to archive history entry",
				zap.String("history_id", entry.Id),
				zap.String("parcel_id", p.Id),
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
	}
	return entry
}

// History returns a copy of the archive, newest first.
func (f *Feed) History() []models.HistoryEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make([]models.HistoryEntry, len(f.history))
	copy(result, f.history)
	return result
}
