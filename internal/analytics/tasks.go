package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/magiccart-api/internal/obs"
)

// TypeSelectionRecorded is the asynq task type for selection analytics.
const TypeSelectionRecorded = "selection:recorded"

// NewSelectionTask wraps evt in an asynq task.
func NewSelectionTask(evt SelectionEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal selection event: %w", err)
	}
	return asynq.NewTask(TypeSelectionRecorded, payload), nil
}

// DecodeSelectionTask reads the event carried by a selection task.
func DecodeSelectionTask(task *asynq.Task) (SelectionEvent, error) {
	var evt SelectionEvent
	if task == nil {
		return evt, errors.New("nil task")
	}
	if err := json.Unmarshal(task.Payload(), &evt); err != nil {
		return evt, fmt.Errorf("decode selection event: %w", err)
	}
	return evt, nil
}

// Enqueuer is the subset of *asynq.Client used to publish tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Recorder publishes selection events to the analytics queue.
type Recorder struct {
	Client    Enqueuer
	Queue     string
	MaxRetry  int
	Retention time.Duration
	Logger    zerolog.Logger
}

// RecordSelection enqueues evt. A resubmission of the same selection at the same
// total is deduplicated by task id and is not an error.
func (r Recorder) RecordSelection(ctx context.Context, evt SelectionEvent) error {
	if r.Client == nil {
		return errors.New("analytics: task client not configured")
	}
	task, err := NewSelectionTask(evt)
	if err != nil {
		return err
	}
	opts := []asynq.Option{
		asynq.TaskID(selectionTaskID(evt)),
	}
	if r.Queue != "" {
		opts = append(opts, asynq.Queue(r.Queue))
	}
	if r.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(r.MaxRetry))
	}
	if r.Retention > 0 {
		opts = append(opts, asynq.Retention(r.Retention))
	}
	info, err := r.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			obs.IncCounter(obs.SelectionTasksTotal, "enqueue", "duplicate")
			return nil
		}
		obs.IncCounter(obs.SelectionTasksTotal, "enqueue", "error")
		return fmt.Errorf("enqueue selection task: %w", err)
	}
	obs.IncCounter(obs.SelectionTasksTotal, "enqueue", "ok")
	if info != nil {
		r.Logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("selection task enqueued")
	}
	return nil
}

// selectionTaskID keys a selection by session, product, vendor and final total,
// so renegotiating with the same vendor records a new event.
func selectionTaskID(evt SelectionEvent) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", TypeSelectionRecorded, evt.SessionID, evt.ProductID, evt.VendorID, evt.FinalTotal.StringFixed(2))
}

// Store persists selection events.
type Store interface {
	InsertSelection(ctx context.Context, evt SelectionEvent) error
}

// Processor handles selection tasks on the worker.
type Processor struct {
	Store  Store
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler. Undecodable payloads are not retried.
func (p Processor) ProcessTask(ctx context.Context, task *asynq.Task) error {
	evt, err := DecodeSelectionTask(task)
	if err != nil {
		obs.IncCounter(obs.SelectionTasksTotal, "process", "invalid")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if p.Store == nil {
		return errors.New("analytics: store not configured")
	}
	if err := p.Store.InsertSelection(ctx, evt); err != nil {
		obs.IncCounter(obs.SelectionTasksTotal, "process", "error")
		p.Logger.Error().Err(err).Str("session_id", evt.SessionID).Msg("persist selection event")
		return err
	}
	obs.IncCounter(obs.SelectionTasksTotal, "process", "ok")
	return nil
}
