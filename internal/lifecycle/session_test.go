package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"parcel-relay-go/internal/database"
	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/parcel"
	"parcel-relay-go/internal/schedule"

	"github.com/shopspring/decimal"
)

// scriptedRand replays fixed draws, then falls back to the largest float
// below 1 (never a competitor win) and zero for IntN.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) == 0 {
		return 0.999
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedRand) IntN(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

type fixture struct {
	session *Session
	clock   *schedule.Manual
	db      *database.Service
	rand    *scriptedRand
}

func setup(t *testing.T, hold bool) *fixture {
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

	clock := schedule.NewManual(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	rnd := &scriptedRand{}
	cfg := models.DefaultSimulationConfig()
	cfg.HoldOnIntake = hold

	session, err := NewSession(cfg, Deps{
		Store:     db,
		Scheduler: clock,
		Rand:      rnd,
		Network: models.NetworkConfig{
			Depots:         []models.Depot{{Id: "depot-central", Name: "Central", Latitude: -6.20, Longitude: 106.80}},
			Rates:          map[string]int64{"bike": 1000, "motor": 1000, "truck": 300, "car": 500},
			DefaultRate:    500,
			KmPerDegree:    111,
			FallbackRoster: []models.Transporter{{Id: "t-fallback", Name: "Pak Joko"}},
		},
		Names: func(actorId string) string { return "Driver " + actorId },
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(session.Close)
	return &fixture{session: session, clock: clock, db: db, rand: rnd}
}

func (fx *fixture) mergeBike(t *testing.T) models.Parcel {
	t.Helper()
	intake, err := fx.session.SubmitIntake(models.Intake{
		Title:          "Handwoven basket",
		SellerId:       "s-1",
		BuyerName:      "Budi",
		BuyerLatitude:  -6.17,
		BuyerLongitude: 106.83,
		TransportType:  "bike",
		WeightKg:       12,
	})
	if err != nil {
		t.Fatalf("SubmitIntake failed: %v", err)
	}
	p, err := fx.session.MergeIntake(intake.Id)
	if err != nil {
		t.Fatalf("MergeIntake failed: %v", err)
	}
	return p
}

func TestFullLifecycle(t *testing.T) {
	fx := setup(t, false)
	ctx := context.Background()

	fx.rand.ints = []int{1, 10} // jitter 1, goods 6000
	p := fx.mergeBike(t)
	if p.Status != models.StatusReady {
		t.Fatalf("Expected READY after merge, got %s", p.Status)
	}
	if !p.Transaction.TransportFee.Equal(decimal.NewFromInt(8000)) {
		t.Fatalf("Expected fee 8000, got %s", p.Transaction.TransportFee.String())
	}

	if _, err := fx.session.StartCompete(p.Id, "t-1"); err != nil {
		t.Fatalf("StartCompete failed: %v", err)
	}
	fx.clock.Advance(3 * time.Second)
	if _, err := fx.session.ConfirmCompete(p.Id, "t-1"); err != nil {
		t.Fatalf("ConfirmCompete failed: %v", err)
	}

	if _, err := fx.session.ScanAndStartTransit(p.Id, "t-2"); !errors.Is(err, models.ErrUnavailable) {
		t.Errorf("Expected scan by another transporter to be unavailable, got %v", err)
	}
	if _, err := fx.session.ScanAndStartTransit(p.Id, "t-1"); err != nil {
		t.Fatalf("ScanAndStartTransit failed: %v", err)
	}

	fx.clock.Advance(time.Minute)
	got, _ := fx.session.GetParcel(p.Id)
	if got.Progress != 90 {
		t.Errorf("Expected transporter scan to stop at 90, got %d", got.Progress)
	}

	delivered, err := fx.session.ConfirmDelivery(ctx, p.Id)
	if err != nil {
		t.Fatalf("ConfirmDelivery failed: %v", err)
	}
	if delivered.Status != models.StatusDelivered || delivered.Progress != 100 || delivered.DeliveredAt == nil {
		t.Errorf("Unexpected delivered parcel: %+v", delivered)
	}
	tx := delivered.Transaction
	if !tx.TransporterPaid || !tx.SellerPaid || tx.Held {
		t.Errorf("Expected both releases and no hold, got %+v", tx)
	}
	if !tx.TransportFee.Add(tx.SellerAmount).Equal(tx.TotalAmount) {
		t.Errorf("Fee %s + seller %s != total %s", tx.TransportFee, tx.SellerAmount, tx.TotalAmount)
	}

	transporters, err := fx.session.GetBalances(ctx, models.ActorTransporter)
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if !transporters["t-1"].Equal(decimal.NewFromInt(8000)) {
		t.Errorf("Expected t-1 balance 8000, got %s", transporters["t-1"].String())
	}
	sellers, _ := fx.session.GetBalances(ctx, models.ActorSeller)
	if !sellers["s-1"].Equal(decimal.NewFromInt(6000)) {
		t.Errorf("Expected s-1 balance 6000, got %s", sellers["s-1"].String())
	}

	history := fx.session.ListHistory()
	if len(history) != 3 || history[0].Kind != models.HistoryDelivered {
		t.Errorf("Expected 3 history entries ending with delivered, got %+v", history)
	}
	archived, err := fx.db.GetHistory(ctx, 10, 0)
	if err != nil || len(archived) != 3 {
		t.Errorf("Expected 3 archived history entries, got %d (%v)", len(archived), err)
	}
	if fx.clock.Pending() != 0 {
		t.Errorf("Expected no pending tasks after delivery, got %d", fx.clock.Pending())
	}
}

func TestConfirmDelivery_RequiresInTransit(t *testing.T) {
	fx := setup(t, false)
	ctx := context.Background()
	p := fx.mergeBike(t)
	notificationsBefore := len(fx.session.ListNotifications())

	_, err := fx.session.ConfirmDelivery(ctx, p.Id)
	if !errors.Is(err, models.ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}

	got, _ := fx.session.GetParcel(p.Id)
	if got.Status != models.StatusReady || got.Transaction.TransporterPaid || got.Transaction.SellerPaid {
		t.Errorf("Failed delivery must have no side effects, got %+v", got)
	}
	if len(fx.session.ListNotifications()) != notificationsBefore {
		t.Error("Failed delivery must not notify")
	}
	if len(fx.session.ListHistory()) != 0 {
		t.Error("Failed delivery must not record history")
	}
	balances, _ := fx.session.GetBalances(ctx, models.ActorSeller)
	if len(balances) != 0 {
		t.Errorf("Failed delivery must not credit anyone, got %v", balances)
	}
}

func TestConfirmDelivery_Twice(t *testing.T) {
	fx := setup(t, false)
	ctx := context.Background()
	p := fx.mergeBike(t)

	if _, err := fx.session.DispatchFromDepot(p.Id); err != nil {
		t.Fatalf("DispatchFromDepot failed: %v", err)
	}
	if _, err := fx.session.ConfirmDelivery(ctx, p.Id); err != nil {
		t.Fatalf("ConfirmDelivery failed: %v", err)
	}
	if _, err := fx.session.ConfirmDelivery(ctx, p.Id); !errors.Is(err, models.ErrUnavailable) {
		t.Errorf("Expected second delivery to be unavailable, got %v", err)
	}

	settlement, err := fx.session.SettleParcel(ctx, p.Id)
	if err != nil {
		t.Fatalf("SettleParcel failed: %v", err)
	}
	if settlement.Transporter.Released || settlement.Seller.Released {
		t.Error("Settling a paid parcel must not release again")
	}

	balance, _ := fx.db.GetBalance(ctx, models.ActorTransporter, "t-fallback")
	if !balance.Equal(p.Transaction.TransportFee) {
		t.Errorf("Expected one fee credited to the fallback transporter, got %s", balance.String())
	}
	if err := fx.session.Reconcile(ctx, models.ActorTransporter, "t-fallback"); err != nil {
		t.Errorf("Reconcile failed: %v", err)
	}
}

func TestDispatchFromDepot_UsesDepotCapAndRoster(t *testing.T) {
	fx := setup(t, false)
	p := fx.mergeBike(t)

	dispatched, err := fx.session.DispatchFromDepot(p.Id)
	if err != nil {
		t.Fatalf("DispatchFromDepot failed: %v", err)
	}
	if dispatched.ClaimedBy != "t-fallback" || dispatched.ClaimedByName != "Pak Joko" {
		t.Errorf("Expected fallback transporter, got %s/%s", dispatched.ClaimedBy, dispatched.ClaimedByName)
	}

	fx.clock.Advance(time.Minute)
	got, _ := fx.session.GetParcel(p.Id)
	if got.Progress != 98 {
		t.Errorf("Expected depot dispatch to stop at 98, got %d", got.Progress)
	}
}

func TestHoldOnIntake(t *testing.T) {
	fx := setup(t, true)
	p := fx.mergeBike(t)
	if p.Status != models.StatusAtDepot {
		t.Fatalf("Expected AT_DEPOT, got %s", p.Status)
	}

	if len(fx.session.ListParcels(parcel.ViewTransporter)) != 0 {
		t.Error("Transporters must not see held parcels")
	}
	depot := fx.session.ListParcels(parcel.ViewDepot)
	if len(depot) != 1 || depot[0].DisplayStatus != "atDepot" {
		t.Errorf("Expected one atDepot parcel in the depot view, got %+v", depot)
	}

	if _, err := fx.session.StartCompete(p.Id, "t-1"); !errors.Is(err, models.ErrUnavailable) {
		t.Errorf("Expected held parcel to be unavailable, got %v", err)
	}
	if _, err := fx.session.DispatchFromDepot(p.Id); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("Expected dispatch of a held parcel to be an invalid transition, got %v", err)
	}

	if _, err := fx.session.ReleaseFromDepot(p.Id); err != nil {
		t.Fatalf("ReleaseFromDepot failed: %v", err)
	}
	transporter := fx.session.ListParcels(parcel.ViewTransporter)
	if len(transporter) != 1 || transporter[0].DisplayStatus != "ready" {
		t.Errorf("Expected one ready parcel for transporters, got %+v", transporter)
	}
	if _, err := fx.session.ReleaseFromDepot(p.Id); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("Expected second release to be an invalid transition, got %v", err)
	}
}

func TestCompetitorTakesParcel(t *testing.T) {
	fx := setup(t, false)
	p := fx.mergeBike(t)

	fx.rand.floats = []float64{0.2}
	if _, err := fx.session.StartCompete(p.Id, "t-1"); err != nil {
		t.Fatalf("StartCompete failed: %v", err)
	}
	fx.clock.Advance(6 * time.Second)

	if _, err := fx.session.ScanAndStartTransit(p.Id, "t-1"); !errors.Is(err, models.ErrUnavailable) {
		t.Errorf("Expected a parcel lost to a competitor to be unavailable, got %v", err)
	}
	if len(fx.session.ListParcels(parcel.ViewTransporter)) != 1 {
		t.Error("Claimed parcels stay visible to transporters")
	}
}

func TestDispatchFromDepot_ReassignsCompetitorParcel(t *testing.T) {
	fx := setup(t, false)
	ctx := context.Background()
	p := fx.mergeBike(t)

	fx.rand.floats = []float64{0.2}
	if _, err := fx.session.StartCompete(p.Id, "t-1"); err != nil {
		t.Fatalf("StartCompete failed: %v", err)
	}
	fx.clock.Advance(6 * time.Second)

	lost, _ := fx.session.GetParcel(p.Id)
	if lost.ClaimedBy != models.CompetitorId {
		t.Fatalf("Expected the competitor to hold the parcel, got %q", lost.ClaimedBy)
	}

	dispatched, err := fx.session.DispatchFromDepot(p.Id)
	if err != nil {
		t.Fatalf("DispatchFromDepot failed: %v", err)
	}
	if dispatched.Status != models.StatusInTransit || dispatched.ClaimedBy != "t-fallback" || dispatched.ClaimedByName != "Pak Joko" {
		t.Errorf("Expected the fallback transporter in transit, got %s %s/%s",
			dispatched.Status, dispatched.ClaimedBy, dispatched.ClaimedByName)
	}

	if _, err := fx.session.ConfirmDelivery(ctx, p.Id); err != nil {
		t.Fatalf("ConfirmDelivery failed: %v", err)
	}
	balances, err := fx.session.GetBalances(ctx, models.ActorTransporter)
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if _, ok := balances[models.CompetitorId]; ok {
		t.Errorf("The competitor must never be credited, got %v", balances)
	}
	if !balances["t-fallback"].Equal(p.Transaction.TransportFee) {
		t.Errorf("Expected fee %s for t-fallback, got %v", p.Transaction.TransportFee.String(), balances)
	}
}

func TestScanAndStartTransit_RequiresClaim(t *testing.T) {
	tests := []struct {
		name string
		hold bool
	}{
		{"ready", false},
		{"at depot", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := setup(t, tt.hold)
			p := fx.mergeBike(t)
			notificationsBefore := len(fx.session.ListNotifications())

			_, err := fx.session.ScanAndStartTransit(p.Id, "t-1")
			if !errors.Is(err, models.ErrUnavailable) {
				t.Fatalf("Expected ErrUnavailable, got %v", err)
			}
			got, _ := fx.session.GetParcel(p.Id)
			if got.Status != p.Status || got.ClaimedBy != "" {
				t.Errorf("Failed scan must not change the parcel, got %s claimed by %q", got.Status, got.ClaimedBy)
			}
			if len(fx.session.ListNotifications()) != notificationsBefore {
				t.Error("Failed scan must not notify")
			}
			if fx.clock.Pending() != 0 {
				t.Errorf("Failed scan must not start the tracker, got %d pending", fx.clock.Pending())
			}
		})
	}
}

func TestNotifications(t *testing.T) {
	fx := setup(t, false)
	fx.mergeBike(t)

	notifications := fx.session.ListNotifications()
	if len(notifications) != 1 || notifications[0].Type != models.NotifyIntakeMerged {
		t.Fatalf("Expected one intake_merged notification, got %+v", notifications)
	}
	if err := fx.session.MarkNotificationRead(notifications[0].Id); err != nil {
		t.Fatalf("MarkNotificationRead failed: %v", err)
	}
	if !fx.session.ListNotifications()[0].Read {
		t.Error("Expected notification to be read")
	}
	if err := fx.session.MarkNotificationRead("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestClose_RejectsMutations(t *testing.T) {
	fx := setup(t, false)
	p := fx.mergeBike(t)

	if _, err := fx.session.DispatchFromDepot(p.Id); err != nil {
		t.Fatalf("DispatchFromDepot failed: %v", err)
	}
	fx.session.Close()
	if fx.clock.Pending() != 0 {
		t.Errorf("Expected Close to cancel the tracker, %d pending", fx.clock.Pending())
	}
	if _, err := fx.session.ConfirmDelivery(context.Background(), p.Id); !errors.Is(err, models.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable after close, got %v", err)
	}
}

func TestNewSession_Validates(t *testing.T) {
	cfg := models.DefaultSimulationConfig()
	if _, err := NewSession(cfg, Deps{}); err == nil {
		t.Error("Expected missing store to be rejected")
	}
}
