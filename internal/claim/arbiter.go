// Package claim runs the time-boxed competitive claim protocol for ready parcels.
package claim

import (
	"fmt"
	"time"

	"parcel-relay-go/internal/feed"
	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/parcel"
	"parcel-relay-go/internal/schedule"

	"go.uber.org/zap"
)

// NameResolver maps an actor id to a display name.
type NameResolver func(actorId string) string

const competitorName = "another transporter"

type Config struct {
	Window                   time.Duration
	CompetitorWinProbability float64
}

type Arbiter struct {
	registry  *parcel.Registry
	scheduler schedule.Scheduler
	rand      parcel.RandomSource
	feed      *feed.Feed
	names     NameResolver
	cfg       Config
}

// NewArbiter builds an arbiter. rnd is only drawn from inside registry updates.
func NewArbiter(registry *parcel.Registry, scheduler schedule.Scheduler, rnd parcel.RandomSource, f *feed.Feed, names NameResolver, cfg Config) *Arbiter {
	if names == nil {
		names = func(actorId string) string { return actorId }
	}
	return &Arbiter{
		registry:  registry,
		scheduler: scheduler,
		rand:      rnd,
		feed:      f,
		names:     names,
		cfg:       cfg,
	}
}

// StartCompete opens a claim window on a ready parcel for actorId. Calling it
// again as the window holder returns the open session.
func (a *Arbiter) StartCompete(parcelId, actorId string) (models.CompeteSession, error) {
	if actorId == "" {
		return models.CompeteSession{}, fmt.Errorf("actor id is required")
	}

	var session models.CompeteSession
	_, err := a.registry.Update(parcelId, func(p *models.Parcel, tasks parcel.Tasks) error {
		if p.Status != models.StatusReady {
			return fmt.Errorf("%w: parcel %s is %s", models.ErrUnavailable, p.Id, p.Status)
		}

		now := a.scheduler.Now()
		if current := tasks.Current(parcel.TaskCompete); current != nil {
			if current.Owner != actorId {
				return fmt.Errorf("%w: parcel %s is being claimed by another transporter", models.ErrUnavailable, p.Id)
			}
			session = sessionFor(p.Id, current, now)
			return nil
		}

		task := tasks.Replace(parcel.TaskCompete, actorId)
		task.Deadline = now.Add(a.cfg.Window)
		task.Attach(a.scheduler.AfterFunc(a.cfg.Window, func() {
			a.expire(parcelId, task)
		}))
		session = sessionFor(p.Id, task, now)

		a.feed.Notify(models.NotifyCompeteOpened, p.Id,
			fmt.Sprintf("%s is competing for %q, %ds to confirm", a.names(actorId), p.Title, int(a.cfg.Window.Seconds())))
		return nil
	})
	if err != nil {
		return models.CompeteSession{}, err
	}

	zap.L().Info("Claim window opened",
		zap.String("parcel_id", parcelId),
		zap.String("actor_id", actorId),
		zap.Time("deadline", session.Deadline))
	return session, nil
}

// ConfirmCompete claims the parcel for the window holder and cancels the countdown.
func (a *Arbiter) ConfirmCompete(parcelId, actorId string) (models.Parcel, error) {
	p, err := a.registry.Update(parcelId, func(p *models.Parcel, tasks parcel.Tasks) error {
		current := tasks.Current(parcel.TaskCompete)
		if current == nil || current.Owner != actorId {
			return fmt.Errorf("%w: %s holds no open claim window on parcel %s", models.ErrUnavailable, actorId, p.Id)
		}
		if p.Status != models.StatusReady {
			return fmt.Errorf("%w: parcel %s is %s", models.ErrUnavailable, p.Id, p.Status)
		}

		if err := parcel.Transition(p, models.StatusClaimed); err != nil {
			return err
		}
		tasks.Cancel(parcel.TaskCompete)
		p.ClaimedBy = actorId
		p.ClaimedByName = a.names(actorId)

		a.feed.Notify(models.NotifyClaimed, p.Id,
			fmt.Sprintf("%q claimed by %s", p.Title, p.ClaimedByName))
		return nil
	})
	if err != nil {
		return models.Parcel{}, err
	}

	zap.L().Info("Parcel claimed", zap.String("parcel_id", parcelId), zap.String("actor_id", actorId))
	return p, nil
}

// expire resolves a window that ran out without confirmation.
func (a *Arbiter) expire(parcelId string, task *parcel.Task) {
	_, err := a.registry.Update(parcelId, func(p *models.Parcel, tasks parcel.Tasks) error {
		if !tasks.Finish(task) {
			return nil
		}
		if p.Status != models.StatusReady {
			return nil
		}

		roll := a.rand.Float64()
		if roll < a.cfg.CompetitorWinProbability {
			if err := parcel.Transition(p, models.StatusClaimed); err != nil {
				return err
			}
			p.ClaimedBy = models.CompetitorId
			p.ClaimedByName = competitorName
			a.feed.Notify(models.NotifyClaimLost, p.Id,
				fmt.Sprintf("%q was taken by %s", p.Title, competitorName))
			zap.L().Info("Claim window lost to competitor",
				zap.String("parcel_id", p.Id),
				zap.String("actor_id", task.Owner),
				zap.Float64("roll", roll))
			return nil
		}

		a.feed.Notify(models.NotifyClaimReopened, p.Id,
			fmt.Sprintf("Claim window for %q expired, parcel is open again", p.Title))
		zap.L().Info("Claim window expired, parcel reopened",
			zap.String("parcel_id", p.Id),
			zap.String("actor_id", task.Owner),
			zap.Float64("roll", roll))
		return nil
	})
	if err != nil {
		zap.L().Debug("Claim window expiry skipped", zap.String("parcel_id", parcelId), zap.Error(err))
	}
}

func sessionFor(parcelId string, task *parcel.Task, now time.Time) models.CompeteSession {
	return models.CompeteSession{
		ParcelId:  parcelId,
		ActorId:   task.Owner,
		Countdown: max(task.Deadline.Sub(now), 0),
		Deadline:  task.Deadline,
	}
}
