package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"novascp/types"
	"novascp/websocket"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyFileName    = errors.New("file name is required")
	ErrInvalidDirection = errors.New("direction must be 'upload' or 'download'")
	ErrJobNotFound      = errors.New("transfer not found")
	ErrJobFinished      = errors.New("transfer already finished")
	ErrEngineClosed     = errors.New("transfer engine is closed")
)

// DefaultTickInterval is how often a running transfer advances
const DefaultTickInterval = 600 * time.Millisecond

// CancelledMessage is recorded on transfers stopped by the user
const CancelledMessage = "cancelled"

// TransferEngine owns the simulated transfers and the drivers advancing them
type TransferEngine interface {
	StartTransfer(fileName string, direction types.Direction) (string, error)
	GetJob(id string) (types.TransferJob, bool)
	Jobs() []types.TransferJob
	Subscribe() (<-chan []types.TransferJob, func())
	CancelTransfer(id string) error
	RemoveFinished(olderThan time.Duration) int
	Close()
}

// EngineConfig configures a TransferEngine
type EngineConfig struct {
	TickInterval time.Duration
	Source       ProgressSource
	NewTicker    TickerFactory
	Hub          websocket.Hub
	Metrics      *TransferMetrics
	Now          func() time.Time
}

// driver advances exactly one transfer
type driver struct {
	ticker Ticker
	stop   chan struct{}
	done   chan struct{}
}

// transferEngine manages simulated transfers. Every mutation happens under
// mu, and notifications are sent before mu is released so observers see
// snapshots in the order the changes were made.
type transferEngine struct {
	mu      sync.Mutex
	jobs    map[string]*types.TransferJob
	order   []string // newest first
	drivers map[string]*driver
	subs    map[chan []types.TransferJob]struct{}
	closed  bool

	interval  time.Duration
	source    ProgressSource
	newTicker TickerFactory
	hub       websocket.Hub
	metrics   *TransferMetrics
	now       func() time.Time
}

// NewTransferEngine creates a new transfer engine
func NewTransferEngine(cfg EngineConfig) TransferEngine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Source == nil {
		cfg.Source = NewRandomProgressSource(0, 0)
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewTimeTicker
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &transferEngine{
		jobs:      make(map[string]*types.TransferJob),
		drivers:   make(map[string]*driver),
		subs:      make(map[chan []types.TransferJob]struct{}),
		interval:  cfg.TickInterval,
		source:    cfg.Source,
		newTicker: cfg.NewTicker,
		hub:       cfg.Hub,
		metrics:   cfg.Metrics,
		now:       cfg.Now,
	}
}

// StartTransfer creates a transfer, starts its driver and returns its ID
// without waiting for it to finish
func (e *transferEngine) StartTransfer(fileName string, direction types.Direction) (string, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return "", ErrEmptyFileName
	}
	if !direction.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return "", ErrEngineClosed
	}

	id := uuid.New().String()
	for e.jobs[id] != nil {
		id = uuid.New().String()
	}

	job := &types.TransferJob{
		ID:        id,
		FileName:  fileName,
		Direction: direction,
		Progress:  0,
		Speed:     types.SpeedIdle,
		Status:    types.TransferStatusTransferring,
		CreatedAt: e.now(),
		Revision:  1,
	}
	e.jobs[id] = job
	e.order = append([]string{id}, e.order...)

	d := &driver{
		ticker: e.newTicker(e.interval),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	e.drivers[id] = d
	go e.drive(id, d)

	e.metrics.transferStarted(direction)
	logrus.WithFields(logrus.Fields{
		"job_id":    id,
		"file":      fileName,
		"direction": direction,
	}).Info("Transfer started")

	verb := "downloading"
	if direction == types.DirectionUpload {
		verb = "uploading"
	}
	e.publishLocked(job, "status", fmt.Sprintf("Started %s %s", verb, fileName))

	return id, nil
}

// drive runs the ticks of a single transfer until it is terminal or stopped
func (e *transferEngine) drive(id string, d *driver) {
	defer close(d.done)
	defer d.ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-d.ticker.C():
			if !e.advance(id, d) {
				return
			}
		}
	}
}

// advance applies one tick to the transfer and reports whether it should keep
// ticking. A tick that raced with Close or CancelTransfer is discarded.
func (e *transferEngine) advance(id string, d *driver) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.drivers[id] != d {
		return false
	}

	job, ok := e.jobs[id]
	if !ok || job.Status != types.TransferStatusTransferring {
		return false
	}

	step := e.source.Next(job.Clone())

	if step.Fail {
		reason := step.Reason
		if reason == "" {
			reason = "transfer failed"
		}
		e.finishLocked(job, types.TransferStatusError, reason)
		return false
	}

	increment := step.Increment
	if increment < 0 {
		increment = 0
	}
	job.Progress += increment

	if job.Progress >= 100 {
		e.finishLocked(job, types.TransferStatusCompleted, "")
		return false
	}

	job.Speed = step.Speed
	job.Revision++
	e.publishLocked(job, "progress", "")
	return true
}

// finishLocked moves a transfer into a terminal status and retires its driver
func (e *transferEngine) finishLocked(job *types.TransferJob, status types.TransferStatus, reason string) {
	now := e.now()
	job.Status = status
	job.CompletedAt = &now
	job.Revision++

	msgType := "complete"
	message := fmt.Sprintf("%s transfer completed", job.FileName)

	if status == types.TransferStatusCompleted {
		job.Progress = 100
		job.Speed = types.SpeedDone
	} else {
		job.Error = reason
		job.Speed = ""
		msgType = "error"
		message = reason
	}

	if d, ok := e.drivers[job.ID]; ok {
		delete(e.drivers, job.ID)
		close(d.stop)
	}

	e.metrics.transferFinished(status)

	entry := logrus.WithFields(logrus.Fields{
		"job_id": job.ID,
		"file":   job.FileName,
		"status": status,
	})
	if status == types.TransferStatusCompleted {
		entry.Info("Transfer completed")
	} else {
		entry.WithField("reason", reason).Warn("Transfer failed")
	}

	e.publishLocked(job, msgType, message)
}

// publishLocked notifies subscribers and the hub about a change to job.
// Delivery never blocks, so it is safe to do while holding mu.
func (e *transferEngine) publishLocked(job *types.TransferJob, msgType, message string) {
	if len(e.subs) > 0 {
		snapshot := e.snapshotLocked()
		for ch := range e.subs {
			offer(ch, snapshot)
		}
	}

	if e.hub != nil {
		e.hub.BroadcastProgress(progressMessage(job, msgType, message))
	}
}

// offer delivers the latest snapshot, replacing the oldest pending one when
// the subscriber has fallen behind
func offer(ch chan []types.TransferJob, snapshot []types.TransferJob) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}

func progressMessage(job *types.TransferJob, msgType, message string) types.ProgressMessage {
	return types.ProgressMessage{
		JobID:     job.ID,
		Type:      msgType,
		Progress:  job.Progress,
		Status:    string(job.Status),
		FileName:  job.FileName,
		Direction: string(job.Direction),
		Speed:     job.Speed,
		Message:   message,
		Revision:  job.Revision,
	}
}

// ProgressMessageFor describes the current state of a transfer, for clients
// that connect after it started
func ProgressMessageFor(job types.TransferJob) types.ProgressMessage {
	msgType := "progress"
	switch job.Status {
	case types.TransferStatusCompleted:
		msgType = "complete"
	case types.TransferStatusError:
		msgType = "error"
	}
	msg := progressMessage(&job, msgType, job.Error)
	msg.Timestamp = time.Now()
	return msg
}

func (e *transferEngine) snapshotLocked() []types.TransferJob {
	snapshot := make([]types.TransferJob, 0, len(e.order))
	for _, id := range e.order {
		snapshot = append(snapshot, e.jobs[id].Clone())
	}
	return snapshot
}

// GetJob returns a copy of the transfer with the given ID
func (e *transferEngine) GetJob(id string) (types.TransferJob, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	job, ok := e.jobs[id]
	if !ok {
		return types.TransferJob{}, false
	}
	return job.Clone(), true
}

// Jobs returns a snapshot of every transfer, newest first
func (e *transferEngine) Jobs() []types.TransferJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe returns a channel that receives the current snapshot and then a
// new snapshot after every change, plus a function that ends the subscription.
// A subscriber that falls behind only loses intermediate snapshots.
func (e *transferEngine) Subscribe() (<-chan []types.TransferJob, func()) {
	ch := make(chan []types.TransferJob, 16)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		close(ch)
		return ch, func() {}
	}

	ch <- e.snapshotLocked()
	e.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if _, ok := e.subs[ch]; ok {
				delete(e.subs, ch)
				close(ch)
			}
		})
	}
}

// CancelTransfer stops a running transfer and marks it as failed. When it
// returns the transfer is terminal and its driver has exited.
func (e *transferEngine) CancelTransfer(id string) error {
	e.mu.Lock()
	job, ok := e.jobs[id]
	if !ok {
		e.mu.Unlock()
		return ErrJobNotFound
	}
	if job.Status.Terminal() {
		e.mu.Unlock()
		return ErrJobFinished
	}

	d := e.drivers[id]
	e.finishLocked(job, types.TransferStatusError, CancelledMessage)
	e.mu.Unlock()

	if d != nil {
		<-d.done
	}
	return nil
}

// RemoveFinished drops terminal transfers that finished more than olderThan
// ago and returns how many were removed
func (e *transferEngine) RemoveFinished(olderThan time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-olderThan)
	kept := e.order[:0]
	removed := 0
	for _, id := range e.order {
		job := e.jobs[id]
		if job.Status.Terminal() && job.CompletedAt != nil && !job.CompletedAt.After(cutoff) {
			delete(e.jobs, id)
			removed++
			if e.hub != nil {
				job.Revision++
				e.hub.BroadcastProgress(progressMessage(job, "removed", fmt.Sprintf("%s removed from the queue", job.FileName)))
			}
			continue
		}
		kept = append(kept, id)
	}
	e.order = kept

	if removed > 0 {
		snapshot := e.snapshotLocked()
		for ch := range e.subs {
			offer(ch, snapshot)
		}
		logrus.WithField("removed", removed).Debug("Removed finished transfers")
	}
	return removed
}

// Close stops every driver and ends all subscriptions. Running transfers are
// left in their current state.
func (e *transferEngine) Close() {
	e.mu.Lock()
	pending := e.closeLocked()
	e.mu.Unlock()

	for _, d := range pending {
		<-d.done
	}
}

// closeLocked marks the engine closed, signals every driver and returns
// the drivers to wait for
func (e *transferEngine) closeLocked() []*driver {
	if e.closed {
		return nil
	}
	e.closed = true

	pending := make([]*driver, 0, len(e.drivers))
	for id, d := range e.drivers {
		close(d.stop)
		pending = append(pending, d)
		delete(e.drivers, id)
	}
	for ch := range e.subs {
		close(ch)
		delete(e.subs, ch)
	}
	return pending
}
