// Package lifecycle wires the parcel registry, claim arbiter, transit tracker,
// ledger and feed into one session with the operations actors call.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"parcel-relay-go/internal/claim"
	"parcel-relay-go/internal/feed"
	"parcel-relay-go/internal/ledger"
	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/parcel"
	"parcel-relay-go/internal/schedule"
	"parcel-relay-go/internal/store"
	"parcel-relay-go/internal/transit"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Deps are the collaborators a session is built from. Scheduler and Rand
// default to the wall clock and a PCG source seeded from the config.
type Deps struct {
	Store     store.LedgerStore
	Scheduler schedule.Scheduler
	Rand      parcel.RandomSource
	Network   models.NetworkConfig
	Names     claim.NameResolver
}

// Settlement reports the releases performed for one parcel.
type Settlement struct {
	Parcel      models.Parcel        `json:"parcel"`
	Transporter models.ReleaseResult `json:"transporter"`
	Seller      models.ReleaseResult `json:"seller"`
}

type Session struct {
	cfg       models.SimulationConfig
	scheduler schedule.Scheduler
	registry  *parcel.Registry
	feed      *feed.Feed
	ledger    *ledger.Ledger
	arbiter   *claim.Arbiter
	tracker   *transit.Tracker
	names     claim.NameResolver
}

func NewSession(cfg models.SimulationConfig, deps Deps) (*Session, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if len(deps.Network.Depots) == 0 {
		return nil, fmt.Errorf("network has no depots")
	}
	if cfg.CompetitorWinProbability < 0 || cfg.CompetitorWinProbability > 1 {
		return nil, fmt.Errorf("competitor win probability must be within [0,1], got %v", cfg.CompetitorWinProbability)
	}
	if cfg.CompeteWindow <= 0 {
		return nil, fmt.Errorf("compete window must be positive, got %v", cfg.CompeteWindow)
	}
	if cfg.StepMin <= 0 || cfg.StepMax < cfg.StepMin {
		return nil, fmt.Errorf("invalid progress step range [%d,%d]", cfg.StepMin, cfg.StepMax)
	}

	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = schedule.Real{}
	}
	names := deps.Names
	if names == nil {
		names = func(actorId string) string { return actorId }
	}
	rnd := deps.Rand
	if rnd == nil {
		rnd = parcel.NewRandomSource(cfg.Seed)
	}

	f := feed.New(scheduler.Now, deps.Store)
	registry := parcel.NewRegistry(parcel.NewPricer(deps.Network, cfg, rnd), scheduler.Now, cfg.HoldOnIntake)

	s := &Session{
		cfg:       cfg,
		scheduler: scheduler,
		registry:  registry,
		feed:      f,
		ledger:    ledger.New(deps.Store, f),
		arbiter: claim.NewArbiter(registry, scheduler, rnd, f, names, claim.Config{
			Window:                   cfg.CompeteWindow,
			CompetitorWinProbability: cfg.CompetitorWinProbability,
		}),
		tracker: transit.NewTracker(registry, scheduler, rnd, f, transit.Config{
			StepMin: cfg.StepMin,
			StepMax: cfg.StepMax,
			TickMin: cfg.TickMin,
			TickMax: cfg.TickMax,
		}),
		names: names,
	}

	zap.L().Info("Lifecycle session started",
		zap.Int("depots", len(deps.Network.Depots)),
		zap.Bool("hold_on_intake", cfg.HoldOnIntake),
		zap.Duration("compete_window", cfg.CompeteWindow))
	return s, nil
}

func (s *Session) SubmitIntake(intake models.Intake) (models.Intake, error) {
	return s.registry.SubmitIntake(intake)
}

func (s *Session) ListIntakes() []models.Intake {
	return s.registry.Intakes()
}

func (s *Session) MergeIntake(intakeId string) (models.Parcel, error) {
	p, err := s.registry.MergeIntake(intakeId)
	if err != nil {
		return models.Parcel{}, err
	}

	s.feed.Notify(models.NotifyIntakeMerged, p.Id,
		fmt.Sprintf("%q is now a parcel: %d km, transport fee %s", p.Title, p.DistanceKm, p.Transaction.TransportFee.String()))
	return p, nil
}

// ReleaseFromDepot publishes a held parcel to transporters.
func (s *Session) ReleaseFromDepot(parcelId string) (models.Parcel, error) {
	return s.registry.Update(parcelId, func(p *models.Parcel, _ parcel.Tasks) error {
		if err := parcel.Transition(p, models.StatusReady); err != nil {
			return err
		}
		s.feed.Notify(models.NotifyReleased, p.Id, fmt.Sprintf("%q released by the depot", p.Title))
		return nil
	})
}

func (s *Session) StartCompete(parcelId, actorId string) (models.CompeteSession, error) {
	return s.arbiter.StartCompete(parcelId, actorId)
}

func (s *Session) ConfirmCompete(parcelId, actorId string) (models.Parcel, error) {
	return s.arbiter.ConfirmCompete(parcelId, actorId)
}

// ScanAndStartTransit is the transporter's pickup scan of a parcel it claimed.
func (s *Session) ScanAndStartTransit(parcelId, actorId string) (models.Parcel, error) {
	if actorId == "" {
		return models.Parcel{}, fmt.Errorf("actor id is required")
	}

	return s.registry.Update(parcelId, func(p *models.Parcel, tasks parcel.Tasks) error {
		if p.Status != models.StatusClaimed {
			return fmt.Errorf("%w: parcel %s is %s, not claimed", models.ErrUnavailable, p.Id, p.Status)
		}
		if p.ClaimedBy != "" && p.ClaimedBy != actorId {
			return fmt.Errorf("%w: parcel %s is claimed by another transporter", models.ErrUnavailable, p.Id)
		}
		if err := parcel.Transition(p, models.StatusInTransit); err != nil {
			return err
		}
		if p.ClaimedBy == "" {
			p.ClaimedBy = actorId
			p.ClaimedByName = s.names(actorId)
		}
		p.Progress = 0

		s.feed.Notify(models.NotifyInTransit, p.Id,
			fmt.Sprintf("%q picked up by %s", p.Title, p.ClaimedByName))
		return s.tracker.Begin(p, tasks, s.cfg.TransporterProgressCap)
	})
}

// DispatchFromDepot sends a parcel out from the depot. A ready parcel, or one
// taken by the unidentified competitor, is handed to a transporter from the
// fallback roster so the fee always goes to a known account.
func (s *Session) DispatchFromDepot(parcelId string) (models.Parcel, error) {
	return s.registry.Update(parcelId, func(p *models.Parcel, tasks parcel.Tasks) error {
		lostToCompetitor := p.Status == models.StatusClaimed && p.ClaimedBy == models.CompetitorId
		if p.Status == models.StatusReady || lostToCompetitor {
			transporter, ok := s.registry.Pricer().FallbackTransporter()
			if !ok {
				return fmt.Errorf("%w: no transporter available to dispatch parcel %s", models.ErrUnavailable, p.Id)
			}
			if p.Status == models.StatusReady {
				tasks.Cancel(parcel.TaskCompete)
				if err := parcel.Transition(p, models.StatusClaimed); err != nil {
					return err
				}
			}
			p.ClaimedBy = transporter.Id
			p.ClaimedByName = transporter.Name
			s.feed.Notify(models.NotifyClaimed, p.Id,
				fmt.Sprintf("%q assigned to %s by the depot", p.Title, transporter.Name))
		}

		if err := parcel.Transition(p, models.StatusInTransit); err != nil {
			return err
		}
		p.Progress = 0

		s.feed.Notify(models.NotifyInTransit, p.Id,
			fmt.Sprintf("%q dispatched from the depot with %s", p.Title, p.ClaimedByName))
		return s.tracker.Begin(p, tasks, s.cfg.DepotProgressCap)
	})
}

// ConfirmDelivery is the buyer's delivery scan. Both payments are released
// before the parcel is marked delivered; a failed release leaves it in transit.
func (s *Session) ConfirmDelivery(ctx context.Context, parcelId string) (models.Parcel, error) {
	p, err := s.registry.Update(parcelId, func(p *models.Parcel, tasks parcel.Tasks) error {
		if p.Status != models.StatusInTransit {
			return fmt.Errorf("%w: parcel %s is %s, not in transit", models.ErrUnavailable, p.Id, p.Status)
		}

		if _, err := s.ledger.ReleaseTransporterFee(ctx, p, p.ClaimedBy); err != nil {
			return err
		}
		if _, err := s.ledger.ReleaseSellerPayment(ctx, p); err != nil {
			return err
		}

		tasks.Cancel(parcel.TaskTransit)
		if err := parcel.Transition(p, models.StatusDelivered); err != nil {
			return err
		}
		p.Progress = 100
		deliveredAt := s.scheduler.Now()
		p.DeliveredAt = &deliveredAt

		s.feed.Notify(models.NotifyDelivered, p.Id,
			fmt.Sprintf("%q delivered to %s", p.Title, p.BuyerName))
		s.feed.Record(ctx, models.HistoryDelivered, *p, p.ClaimedBy, decimal.Zero)
		return nil
	})
	if err != nil {
		return p, err
	}

	zap.L().Info("Parcel delivered",
		zap.String("parcel_id", p.Id),
		zap.String("transporter_id", p.ClaimedBy),
		zap.String("seller_id", p.SellerId))
	return p, nil
}

// SettleParcel retries any payment release still outstanding on a delivered parcel.
func (s *Session) SettleParcel(ctx context.Context, parcelId string) (Settlement, error) {
	var result Settlement
	p, err := s.registry.Update(parcelId, func(p *models.Parcel, _ parcel.Tasks) error {
		if p.Status != models.StatusDelivered {
			return fmt.Errorf("%w: parcel %s is %s, not delivered", models.ErrUnavailable, p.Id, p.Status)
		}

		var errs []error
		transporter, err := s.ledger.ReleaseTransporterFee(ctx, p, p.ClaimedBy)
		if err != nil {
			errs = append(errs, err)
		}
		seller, err := s.ledger.ReleaseSellerPayment(ctx, p)
		if err != nil {
			errs = append(errs, err)
		}
		result.Transporter = transporter
		result.Seller = seller
		return errors.Join(errs...)
	})
	result.Parcel = p
	return result, err
}

func (s *Session) GetBalances(ctx context.Context, actorType models.ActorType) (map[string]decimal.Decimal, error) {
	if actorType != models.ActorSeller && actorType != models.ActorTransporter {
		return nil, fmt.Errorf("unknown actor type %q", actorType)
	}
	return s.ledger.Balances(ctx, actorType)
}

func (s *Session) LedgerEntries(ctx context.Context, actorType models.ActorType, actorId string, limit, offset int) ([]models.LedgerRecord, error) {
	return s.ledger.Entries(ctx, actorType, actorId, limit, offset)
}

func (s *Session) Reconcile(ctx context.Context, actorType models.ActorType, actorId string) error {
	return s.ledger.Reconcile(ctx, actorType, actorId)
}

func (s *Session) ListNotifications() []models.Notification {
	return s.feed.Notifications()
}

func (s *Session) MarkNotificationRead(notificationId string) error {
	return s.feed.MarkRead(notificationId)
}

func (s *Session) ListHistory() []models.HistoryEntry {
	return s.feed.History()
}

func (s *Session) GetParcel(parcelId string) (models.Parcel, error) {
	return s.registry.Get(parcelId)
}

// ListParcels returns the parcels visible in view, with their display status.
func (s *Session) ListParcels(view parcel.View) []models.ParcelView {
	var result []models.ParcelView
	for _, p := range s.registry.List() {
		display, ok := parcel.Project(view, p.Status)
		if !ok {
			continue
		}
		result = append(result, models.ParcelView{Parcel: p, DisplayStatus: display})
	}
	return result
}

// Close cancels every countdown and tracker. The store is left open.
func (s *Session) Close() {
	s.registry.Close()
}
