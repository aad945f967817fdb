// Package parcel owns intake and parcel records for a session and enforces the
// parcel state machine.
package parcel

import (
	"fmt"
	"sync"
	"time"

	"parcel-relay-go/internal/models"
	"parcel-relay-go/internal/schedule"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskKind names the scheduled job slots a parcel record has.
type TaskKind string

const (
	TaskCompete TaskKind = "compete"
	TaskTransit TaskKind = "transit"
)

// Task is a scheduled job stored alongside a parcel record. Timer callbacks
// compare their *Task with Tasks.Current to detect cancellation.
type Task struct {
	Kind     TaskKind
	Owner    string
	Deadline time.Time
	handle   schedule.Handle
}

// Attach stores the timer handle that drives this task.
func (t *Task) Attach(h schedule.Handle) {
	t.handle = h
}

func (t *Task) stop() {
	if t.handle != nil {
		t.handle.Stop()
	}
}

type record struct {
	parcel models.Parcel
	tasks  map[TaskKind]*Task
}

// Tasks exposes a record's task slots to an Update callback. It is only valid
// for the duration of that callback.
type Tasks struct {
	rec *record
}

// Current returns the active task of the given kind, or nil.
func (ts Tasks) Current(kind TaskKind) *Task {
	return ts.rec.tasks[kind]
}

// Replace cancels any task of the given kind and installs a fresh one.
func (ts Tasks) Replace(kind TaskKind, owner string) *Task {
	ts.Cancel(kind)
	t := &Task{Kind: kind, Owner: owner}
	ts.rec.tasks[kind] = t
	return t
}

// Cancel stops and removes the task of the given kind. It reports whether one existed.
func (ts Tasks) Cancel(kind TaskKind) bool {
	t, ok := ts.rec.tasks[kind]
	if !ok {
		return false
	}
	t.stop()
	delete(ts.rec.tasks, kind)
	return true
}

// Finish removes t if it is still the current task of its kind. A false result
// means t was cancelled or superseded and its callback must do nothing.
func (ts Tasks) Finish(t *Task) bool {
	if ts.rec.tasks[t.Kind] != t {
		return false
	}
	delete(ts.rec.tasks, t.Kind)
	return true
}

// Registry is the single source of truth for intakes and parcels in a session.
// Every mutation, including timer callbacks, is serialized by mu.
type Registry struct {
	mu           sync.Mutex
	pricer       *Pricer
	now          func() time.Time
	holdOnIntake bool

	intakes     map[string]models.Intake
	intakeOrder []string
	records     map[string]*record
	order       []string
	closed      bool
}

func NewRegistry(pricer *Pricer, now func() time.Time, holdOnIntake bool) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		pricer:       pricer,
		now:          now,
		holdOnIntake: holdOnIntake,
		intakes:      make(map[string]models.Intake),
		records:      make(map[string]*record),
	}
}

// Pricer returns the pricer the registry merges with. Its random source may
// only be used while inside Update.
func (r *Registry) Pricer() *Pricer {
	return r.pricer
}

// SubmitIntake stores a seller drop-off request and assigns its id.
func (r *Registry) SubmitIntake(intake models.Intake) (models.Intake, error) {
	if intake.SellerId == "" {
		return models.Intake{}, fmt.Errorf("seller_id is required")
	}
	if intake.Title == "" {
		return models.Intake{}, fmt.Errorf("title is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return models.Intake{}, errClosed
	}

	intake.Id = uuid.New().String()
	intake.CreatedAt = r.now()
	r.intakes[intake.Id] = intake
	r.intakeOrder = append(r.intakeOrder, intake.Id)

	zap.L().Info("Intake submitted",
		zap.String("intake_id", intake.Id),
		zap.String("seller_id", intake.SellerId),
		zap.String("transport_type", intake.TransportType))
	return intake, nil
}

// Intakes returns the pending intakes in submission order.
func (r *Registry) Intakes() []models.Intake {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]models.Intake, 0, len(r.intakeOrder))
	for _, id := range r.intakeOrder {
		result = append(result, r.intakes[id])
	}
	return result
}

// MergeIntake converts a pending intake into a priced parcel and consumes the intake.
func (r *Registry) MergeIntake(intakeId string) (models.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return models.Parcel{}, errClosed
	}

	intake, ok := r.intakes[intakeId]
	if !ok {
		return models.Parcel{}, fmt.Errorf("%w: intake %s", models.ErrNotFound, intakeId)
	}

	quote, err := r.pricer.Quote(intake)
	if err != nil {
		return models.Parcel{}, fmt.Errorf("unable to price intake %s: %w", intakeId, err)
	}

	status := models.StatusReady
	if r.holdOnIntake {
		status = models.StatusAtDepot
	}

	now := r.now()
	p := models.Parcel{
		Id:             uuid.New().String(),
		IntakeId:       intake.Id,
		Title:          intake.Title,
		SellerId:       intake.SellerId,
		SellerName:     intake.SellerName,
		BuyerId:        intake.BuyerId,
		BuyerName:      intake.BuyerName,
		BuyerPhone:     intake.BuyerPhone,
		BuyerAddress:   intake.BuyerAddress,
		BuyerLatitude:  intake.BuyerLatitude,
		BuyerLongitude: intake.BuyerLongitude,
		TransportType:  intake.TransportType,
		WeightKg:       intake.WeightKg,
		DepotId:        intake.DepotId,
		OriginDistrict: intake.OriginDistrict,
		DistanceKm:     quote.DistanceKm,
		Status:         status,
		Transaction: models.Transaction{
			TotalAmount:  quote.TotalAmount,
			TransportFee: quote.TransportFee,
			SellerAmount: quote.SellerAmount,
			Held:         true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.records[p.Id] = &record{parcel: p, tasks: make(map[TaskKind]*Task)}
	r.order = append(r.order, p.Id)
	delete(r.intakes, intakeId)
	r.removeIntakeOrder(intakeId)

	zap.L().Info("Intake merged into parcel",
		zap.String("intake_id", intakeId),
		zap.String("parcel_id", p.Id),
		zap.Int("distance_km", quote.DistanceKm),
		zap.String("transport_fee", quote.TransportFee.String()),
		zap.String("total_amount", quote.TotalAmount.String()),
		zap.String("status", string(status)))
	return p, nil
}

func (r *Registry) removeIntakeOrder(intakeId string) {
	for i, id := range r.intakeOrder {
		if id == intakeId {
			r.intakeOrder = append(r.intakeOrder[:i], r.intakeOrder[i+1:]...)
			return
		}
	}
}

// Get returns a copy of the parcel.
func (r *Registry) Get(parcelId string) (models.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[parcelId]
	if !ok {
		return models.Parcel{}, fmt.Errorf("%w: parcel %s", models.ErrNotFound, parcelId)
	}
	return rec.parcel, nil
}

// List returns copies of all parcels in merge order.
func (r *Registry) List() []models.Parcel {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]models.Parcel, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.records[id].parcel)
	}
	return result
}

// Update runs fn on the parcel under the registry lock. Changes fn makes are
// kept even when it returns an error, so fn must validate before mutating.
func (r *Registry) Update(parcelId string, fn func(p *models.Parcel, tasks Tasks) error) (models.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return models.Parcel{}, errClosed
	}

	rec, ok := r.records[parcelId]
	if !ok {
		return models.Parcel{}, fmt.Errorf("%w: parcel %s", models.ErrNotFound, parcelId)
	}

	before := rec.parcel.Status
	err := fn(&rec.parcel, Tasks{rec: rec})
	if rec.parcel.Status != before {
		rec.parcel.UpdatedAt = r.now()
		zap.L().Debug("Parcel status changed",
			zap.String("parcel_id", parcelId),
			zap.String("from", string(before)),
			zap.String("to", string(rec.parcel.Status)))
	}
	return rec.parcel, err
}

// SetStatus applies a single state machine edge.
func (r *Registry) SetStatus(parcelId string, status models.ParcelStatus) (models.Parcel, error) {
	return r.Update(parcelId, func(p *models.Parcel, _ Tasks) error {
		return Transition(p, status)
	})
}

// UpdateProgress sets the progress of an in-transit parcel. The value is
// clamped to [0,100], never lowers the current progress, and stays below 100
// until delivery is confirmed. Parcels not in transit are left untouched.
func (r *Registry) UpdateProgress(parcelId string, value int) (models.Parcel, error) {
	return r.Update(parcelId, func(p *models.Parcel, _ Tasks) error {
		if p.Status != models.StatusInTransit {
			return nil
		}
		value = min(max(value, 0), 100)
		value = min(value, 99)
		if value > p.Progress {
			p.Progress = value
		}
		return nil
	})
}

// Close cancels every scheduled task and rejects further mutations.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	cancelled := 0
	for _, rec := range r.records {
		ts := Tasks{rec: rec}
		for kind := range rec.tasks {
			if ts.Cancel(kind) {
				cancelled++
			}
		}
	}
	zap.L().Info("Parcel registry closed",
		zap.Int("parcels", len(r.records)),
		zap.Int("cancelled_tasks", cancelled))
}

var errClosed = fmt.Errorf("%w: session closed", models.ErrUnavailable)
