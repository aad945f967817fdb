package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"parcel-relay-go/internal/database"
	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/schedule"
)

// competitorRand always rolls a competitor win when a window lapses.
type competitorRand struct{}

func (competitorRand) Float64() float64 { return 0 }
func (competitorRand) IntN(int) int     { return 0 }

func setupRealClock(t *testing.T, window time.Duration) *fixture {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(db.Close)

	cfg := models.DefaultSimulationConfig()
	cfg.CompeteWindow = window

	session, err := NewSession(cfg, Deps{
		Store:     db,
		Scheduler: schedule.Real{},
		Rand:      competitorRand{},
		Network: models.NetworkConfig{
			Depots:         []models.Depot{{Id: "depot-central", Name: "Central", Latitude: -6.20, Longitude: 106.80}},
			Rates:          map[string]int64{"bike": 1000},
			DefaultRate:    500,
			KmPerDegree:    111,
			FallbackRoster: []models.Transporter{{Id: "t-fallback", Name: "Pak Joko"}},
		},
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(session.Close)
	return &fixture{session: session, db: db}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func countNotifications(s *Session, parcelId string, kind models.NotificationType) int {
	n := 0
	for _, notification := range s.ListNotifications() {
		if notification.ParcelId == parcelId && notification.Type == kind {
			n++
		}
	}
	return n
}

func TestCompete_ConcurrentActorsOnRealClock(t *testing.T) {
	const (
		rounds = 50
		actors = 8
		window = 50 * time.Microsecond
	)
	fx := setupRealClock(t, window)

	for round := 0; round < rounds; round++ {
		p := fx.mergeBike(t)

		var mu sync.Mutex
		var started, confirmed []string
		var wg sync.WaitGroup
		for i := 0; i < actors; i++ {
			actorId := fmt.Sprintf("t-%d", i)
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := fx.session.StartCompete(p.Id, actorId); err != nil {
					if !errors.Is(err, models.ErrUnavailable) {
						t.Errorf("Unexpected StartCompete error: %v", err)
					}
					return
				}
				mu.Lock()
				started = append(started, actorId)
				mu.Unlock()

				if _, err := fx.session.ConfirmCompete(p.Id, actorId); err == nil {
					mu.Lock()
					confirmed = append(confirmed, actorId)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if len(started) != 1 {
			t.Fatalf("Round %d: expected exactly one claim window, got %v", round, started)
		}
		if len(confirmed) > 1 {
			t.Fatalf("Round %d: expected at most one confirmation, got %v", round, confirmed)
		}

		settled := waitFor(t, time.Second, func() bool {
			got, _ := fx.session.GetParcel(p.Id)
			return got.Status == models.StatusClaimed
		})
		if !settled {
			t.Fatalf("Round %d: parcel never left READY", round)
		}
		// let any stray countdown fire
		time.Sleep(10 * window)

		got, _ := fx.session.GetParcel(p.Id)
		lost := countNotifications(fx.session, p.Id, models.NotifyClaimLost)
		if len(confirmed) == 1 {
			if got.ClaimedBy != confirmed[0] {
				t.Errorf("Round %d: expected %s to hold the parcel, got %s", round, confirmed[0], got.ClaimedBy)
			}
			if lost != 0 {
				t.Errorf("Round %d: confirmed parcel must not report a lost claim", round)
			}
		} else {
			if got.ClaimedBy != models.CompetitorId {
				t.Errorf("Round %d: expected the competitor after timeout, got %s", round, got.ClaimedBy)
			}
			if lost != 1 {
				t.Errorf("Round %d: expected one lost claim notification, got %d", round, lost)
			}
		}
		if claimed := countNotifications(fx.session, p.Id, models.NotifyClaimed); claimed+lost != 1 {
			t.Errorf("Round %d: expected exactly one claim outcome, got %d claimed and %d lost", round, claimed, lost)
		}
	}
}

func TestConfirmDelivery_ConcurrentWithSettle(t *testing.T) {
	const callers = 16
	fx := setupRealClock(t, time.Minute)
	ctx := context.Background()

	p := fx.mergeBike(t)
	if _, err := fx.session.DispatchFromDepot(p.Id); err != nil {
		t.Fatalf("DispatchFromDepot failed: %v", err)
	}

	var mu sync.Mutex
	delivered := 0
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(deliver bool) {
			defer wg.Done()
			if deliver {
				_, err := fx.session.ConfirmDelivery(ctx, p.Id)
				if err == nil {
					mu.Lock()
					delivered++
					mu.Unlock()
				} else if !errors.Is(err, models.ErrUnavailable) {
					t.Errorf("Unexpected ConfirmDelivery error: %v", err)
				}
				return
			}
			if _, err := fx.session.SettleParcel(ctx, p.Id); err != nil && !errors.Is(err, models.ErrUnavailable) {
				t.Errorf("Unexpected SettleParcel error: %v", err)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if delivered != 1 {
		t.Fatalf("Expected exactly one successful delivery, got %d", delivered)
	}

	fee, _ := fx.db.GetBalance(ctx, models.ActorTransporter, "t-fallback")
	if !fee.Equal(p.Transaction.TransportFee) {
		t.Errorf("Expected transporter balance %s, got %s", p.Transaction.TransportFee.String(), fee.String())
	}
	seller, _ := fx.db.GetBalance(ctx, models.ActorSeller, "s-1")
	if !seller.Equal(p.Transaction.SellerAmount) {
		t.Errorf("Expected seller balance %s, got %s", p.Transaction.SellerAmount.String(), seller.String())
	}
	entries, err := fx.db.GetLedgerEntries(ctx, models.ActorSeller, "s-1", 10, 0)
	if err != nil {
		t.Fatalf("GetLedgerEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected one seller credit, got %d", len(entries))
	}
	if history := fx.session.ListHistory(); len(history) != 3 {
		t.Errorf("Expected 3 history entries, got %d", len(history))
	}
	for _, actor := range []struct {
		actorType models.ActorType
		actorId   string
	}{{models.ActorTransporter, "t-fallback"}, {models.ActorSeller, "s-1"}} {
		if err := fx.session.Reconcile(ctx, actor.actorType, actor.actorId); err != nil {
			t.Errorf("Reconcile %s failed: %v", actor.actorId, err)
		}
	}
}
