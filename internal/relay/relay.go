// Package relay moves inverter archive readings to PVOutput and keeps the
// checkpoint in step with what PVOutput has accepted.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jgoulah/pvrelay/internal/checkpoint"
	"github.com/jgoulah/pvrelay/internal/pvoutput"
	"github.com/jgoulah/pvrelay/pkg/models"
)

// Mode selects how the run seeds its starting reading
type Mode string

const (
	// ModeNormal resumes from the stored checkpoint
	ModeNormal Mode = "normal"
	// ModeRepost replays one past day without touching the checkpoint
	ModeRepost Mode = "repost"
)

// endDatePadding works around the inverter ignoring the last day of an archive query
const endDatePadding = 24 * time.Hour

// ArchiveReader fetches merged readings after a checkpoint
type ArchiveReader interface {
	FetchProfile(ctx context.Context, cp models.Reading, end time.Time) ([]models.Reading, error)
}

// Submitter sends readings to PVOutput
type Submitter interface {
	Submit(ctx context.Context, profile []models.Reading) (pvoutput.Result, error)
}

// CheckpointStore persists the last confirmed reading
type CheckpointStore interface {
	Load() models.Reading
	Save(models.Reading) error
}

// HistoryRecorder logs accepted readings
type HistoryRecorder interface {
	RecordBatch(batchID, mode string, readings []models.Reading, submittedAt time.Time) error
}

// Mirror republishes the newest confirmed reading
type Mirror interface {
	PublishReading(models.Reading) error
}

// Deps are the collaborators of a Relay. History and Mirror are optional.
type Deps struct {
	Reader    ArchiveReader
	Submitter Submitter
	Store     CheckpointStore
	History   HistoryRecorder
	Mirror    Mirror
	DryRun    bool
}

// Result summarizes a run
type Result struct {
	Mode       Mode
	BatchID    string
	Start      models.Reading // reading the archive query resumed from
	RolledOver bool           // Start replaced a checkpoint from another day
	Readings   int            // readings accepted by PVOutput
	Batches    int
	Saved      bool // checkpoint was advanced
	Checkpoint models.Reading
}

// Relay runs the fetch, merge, submit and checkpoint pipeline
type Relay struct {
	deps  Deps
	log   logrus.FieldLogger
	now   func() time.Time
	newID func() string
}

// New creates a Relay
func New(deps Deps, log logrus.FieldLogger) *Relay {
	return &Relay{
		deps:  deps,
		log:   log.WithField("component", "relay"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// RunNormal submits everything the inverter archived since the checkpoint and
// advances the checkpoint to the last accepted reading. The checkpoint is only
// written after PVOutput accepted every batch.
func (r *Relay) RunNormal(ctx context.Context) (Result, error) {
	now := r.now()
	res := Result{Mode: ModeNormal, BatchID: r.newID()}

	stored := r.deps.Store.Load()
	r.log.WithFields(logrus.Fields{"ts": stored.Timestamp, "day_energy": stored.DayEnergy}).Debug("Last")

	cp, rolled := checkpoint.Rollover(stored, now)
	if rolled {
		r.log.WithField("midnight", cp.Time().Format(time.RFC3339)).Debug("First reading of the day")
	}
	res.Start = cp
	res.RolledOver = rolled
	res.Checkpoint = stored

	r.log.WithField("seconds", now.Unix()-cp.Timestamp).Debug("Time since checkpoint")

	profile, err := r.deps.Reader.FetchProfile(ctx, cp, now.Add(endDatePadding))
	if err != nil {
		return res, fmt.Errorf("reading inverter archive: %w", err)
	}

	sub, err := r.deps.Submitter.Submit(ctx, profile)
	res.Readings, res.Batches = sub.Readings, sub.Batches
	if err != nil {
		return res, fmt.Errorf("submitting to pvoutput: %w", err)
	}

	if len(profile) == 0 {
		r.log.Info("No new readings, checkpoint unchanged")
		return res, nil
	}

	last := profile[len(profile)-1]
	if err := r.deps.Store.Save(last); err != nil {
		return res, fmt.Errorf("saving checkpoint: %w", err)
	}
	res.Saved = true
	res.Checkpoint = last

	r.record(res.BatchID, ModeNormal, profile, now)
	r.mirror(last)

	return res, nil
}

// Repost resubmits the archived readings of day, starting from a zero-energy
// reading at its UTC midnight. The stored checkpoint is neither read nor written.
func (r *Relay) Repost(ctx context.Context, day time.Time) (Result, error) {
	now := r.now()
	midnight := models.Midnight(day)
	res := Result{Mode: ModeRepost, BatchID: r.newID()}

	if midnight.After(models.Midnight(now)) {
		return res, fmt.Errorf("cannot repost %s: date is in the future", midnight.Format("2006-01-02"))
	}

	cp := models.StartOfDay(midnight)
	res.Start = cp

	r.log.WithField("date", midnight.Format("2006-01-02")).Info("Reposting")

	profile, err := r.deps.Reader.FetchProfile(ctx, cp, midnight.Add(24*time.Hour))
	if err != nil {
		return res, fmt.Errorf("reading inverter archive: %w", err)
	}

	sub, err := r.deps.Submitter.Submit(ctx, profile)
	res.Readings, res.Batches = sub.Readings, sub.Batches
	if err != nil {
		return res, fmt.Errorf("submitting to pvoutput: %w", err)
	}

	r.record(res.BatchID, ModeRepost, profile, now)
	return res, nil
}

// record and mirror are best effort: PVOutput already has the data
func (r *Relay) record(batchID string, mode Mode, profile []models.Reading, at time.Time) {
	if r.deps.History == nil || r.deps.DryRun || len(profile) == 0 {
		return
	}
	if err := r.deps.History.RecordBatch(batchID, string(mode), profile, at); err != nil {
		r.log.WithError(err).Warn("Could not record submission history")
	}
}

func (r *Relay) mirror(last models.Reading) {
	if r.deps.Mirror == nil || r.deps.DryRun {
		return
	}
	if err := r.deps.Mirror.PublishReading(last); err != nil {
		r.log.WithError(err).Warn("Could not publish reading to MQTT")
	}
}
