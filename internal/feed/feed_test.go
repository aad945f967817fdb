package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"parcel-relay-go/internal/models"

	"github.com/shopspring/decimal"
)

type recordingArchiver struct {
	entries []models.HistoryEntry
	err     error
}

func (a *recordingArchiver) RecordHistory(_ context.Context, entry models.HistoryEntry) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

func fixedNow() time.Time {
	return time.Unix(1700000000, 0)
}

func TestNotify_NewestFirst(t *testing.T) {
	f := New(fixedNow, nil)

	f.Notify(models.NotifyIntakeMerged, "p-1", "first")
	f.Notify(models.NotifyClaimed, "p-1", "second")
	f.Notify(models.NotifyDelivered, "p-1", "third")

	got := f.Notifications()
	if len(got) != 3 {
		t.Fatalf("Expected 3 notifications, got %d", len(got))
	}
	if got[0].Text != "third" || got[2].Text != "first" {
		t.Errorf("Expected newest first, got %q ... %q", got[0].Text, got[2].Text)
	}
	if got[0].Id == got[1].Id {
		t.Errorf("Expected distinct ids")
	}
}

func TestMarkRead(t *testing.T) {
	f := New(fixedNow, nil)
	n := f.Notify(models.NotifyClaimed, "p-1", "claimed")
	f.Notify(models.NotifyDelivered, "p-1", "delivered")

	if f.Unread() != 2 {
		t.Fatalf("Expected 2 unread, got %d", f.Unread())
	}
	if err := f.MarkRead(n.Id); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if f.Unread() != 1 {
		t.Errorf("Expected 1 unread, got %d", f.Unread())
	}

	for _, got := range f.Notifications() {
		if got.Id == n.Id && !got.Read {
			t.Errorf("Expected notification to be read")
		}
	}

	if err := f.MarkRead("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestNotifications_ReturnsCopy(t *testing.T) {
	f := New(fixedNow, nil)
	f.Notify(models.NotifyClaimed, "p-1", "claimed")

	got := f.Notifications()
	got[0].Text = "mutated"
	if f.Notifications()[0].Text != "claimed" {
		t.Errorf("Callers must not be able to mutate the feed")
	}
}

func TestRecord_ArchivesAndPrepends(t *testing.T) {
	archiver := &recordingArchiver{}
	f := New(fixedNow, archiver)
	ctx := context.Background()

	p := models.Parcel{Id: "p-1", Status: models.StatusDelivered, Progress: 100}
	f.Record(ctx, models.HistoryTransporterPaid, p, "t-1", decimal.NewFromInt(8000))
	f.Record(ctx, models.HistoryDelivered, p, "t-1", decimal.Zero)

	history := f.History()
	if len(history) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(history))
	}
	if history[0].Kind != models.HistoryDelivered {
		t.Errorf("Expected newest entry first, got %s", history[0].Kind)
	}
	if history[0].Snapshot.Progress != 100 {
		t.Errorf("Expected snapshot to carry parcel state")
	}
	if len(archiver.entries) != 2 {
		t.Errorf("Expected 2 archived entries, got %d", len(archiver.entries))
	}
}

func TestRecord_ArchiverFailureIsNotFatal(t *testing.T) {
	archiver := &recordingArchiver{err: errors.New("disk full")}
	f := New(fixedNow, archiver)

	f.Record(context.Background(), models.HistorySellerPaid, models.Parcel{Id: "p-1"}, "s-1", decimal.NewFromInt(6000))
	if len(f.History()) != 1 {
		t.Errorf("Expected in-memory history despite archiver failure")
	}
}
