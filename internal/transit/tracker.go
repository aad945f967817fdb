// Package transit advances the progress of in-transit parcels on a randomized tick.
package transit

import (
	"fmt"
	"time"

	"parcel-relay-go/internal/feed"
	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/parcel"
	"parcel-relay-go/internal/schedule"

	"go.uber.org/zap"
)

// maxTrackedProgress keeps a tracked parcel short of 100, which only delivery sets.
const maxTrackedProgress = 99

type Config struct {
	StepMin int
	StepMax int
	TickMin time.Duration
	TickMax time.Duration
}

type Tracker struct {
	registry  *parcel.Registry
	scheduler schedule.Scheduler
	rand      parcel.RandomSource
	feed      *feed.Feed
	cfg       Config
}

// NewTracker builds a tracker. rnd is only drawn from inside registry updates.
func NewTracker(registry *parcel.Registry, scheduler schedule.Scheduler, rnd parcel.RandomSource, f *feed.Feed, cfg Config) *Tracker {
	if cfg.StepMax < cfg.StepMin {
		cfg.StepMax = cfg.StepMin
	}
	if cfg.TickMax < cfg.TickMin {
		cfg.TickMax = cfg.TickMin
	}
	return &Tracker{
		registry:  registry,
		scheduler: scheduler,
		rand:      rnd,
		feed:      f,
		cfg:       cfg,
	}
}

// Start begins tracking an in-transit parcel up to progressCap, replacing any running tracker.
func (t *Tracker) Start(parcelId string, progressCap int) error {
	_, err := t.registry.Update(parcelId, func(p *models.Parcel, tasks parcel.Tasks) error {
		return t.Begin(p, tasks, progressCap)
	})
	return err
}

// Begin is Start for callers already inside a registry update.
func (t *Tracker) Begin(p *models.Parcel, tasks parcel.Tasks, progressCap int) error {
	if p.Status != models.StatusInTransit {
		return fmt.Errorf("%w: parcel %s is %s", models.ErrUnavailable, p.Id, p.Status)
	}
	progressCap = min(max(progressCap, 0), maxTrackedProgress)

	task := tasks.Replace(parcel.TaskTransit, p.ClaimedBy)
	t.schedule(p.Id, task, progressCap)

	zap.L().Info("Transit tracking started",
		zap.String("parcel_id", p.Id),
		zap.String("transporter_id", p.ClaimedBy),
		zap.Int("cap", progressCap))
	return nil
}

// Stop cancels the tracker for a parcel. It reports whether one was running.
func (t *Tracker) Stop(parcelId string) (bool, error) {
	var stopped bool
	_, err := t.registry.Update(parcelId, func(_ *models.Parcel, tasks parcel.Tasks) error {
		stopped = tasks.Cancel(parcel.TaskTransit)
		return nil
	})
	return stopped, err
}

func (t *Tracker) schedule(parcelId string, task *parcel.Task, progressCap int) {
	delay := t.cfg.TickMin
	if spread := int((t.cfg.TickMax - t.cfg.TickMin) / time.Millisecond); spread > 0 {
		delay += time.Duration(t.rand.IntN(spread+1)) * time.Millisecond
	}
	task.Deadline = t.scheduler.Now().Add(delay)
	task.Attach(t.scheduler.AfterFunc(delay, func() {
		t.tick(parcelId, task, progressCap)
	}))
}

func (t *Tracker) tick(parcelId string, task *parcel.Task, progressCap int) {
	_, err := t.registry.Update(parcelId, func(p *models.Parcel, tasks parcel.Tasks) error {
		if tasks.Current(parcel.TaskTransit) != task {
			return nil
		}
		if p.Status != models.StatusInTransit {
			tasks.Finish(task)
			return nil
		}

		step := t.cfg.StepMin + t.rand.IntN(t.cfg.StepMax-t.cfg.StepMin+1)
		p.Progress = max(p.Progress, min(p.Progress+step, progressCap))

		if p.Progress >= progressCap {
			tasks.Finish(task)
			t.feed.Notify(models.NotifyAwaitingHandoff, p.Id,
				fmt.Sprintf("%q is at %d%%, waiting for the buyer to confirm delivery", p.Title, p.Progress))
			zap.L().Info("Transit tracking reached cap",
				zap.String("parcel_id", p.Id),
				zap.Int("progress", p.Progress))
			return nil
		}

		t.schedule(p.Id, task, progressCap)
		return nil
	})
	if err != nil {
		zap.L().Debug("Transit tick skipped", zap.String("parcel_id", parcelId), zap.Error(err))
	}
}
