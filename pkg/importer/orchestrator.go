package importer

import (
	"context"
	"net/http"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
)

// ErrImportRunning rejects work that conflicts with a running import.
var ErrImportRunning = httperror.NewHTTPError(http.StatusConflict, "an import is already running")

// Runner executes one full import. Satisfied by Pipeline.
type Runner interface {
	Run(ctx context.Context, path string) (*models.ImportSummary, error)
}

// StoreClearer wipes the backing store.
type StoreClearer interface {
	Clear(ctx context.Context) error
}

// ImportEventSink receives import completion notifications. May be nil.
type ImportEventSink interface {
	ImportCompleted(ctx context.Context, summary models.ImportSummary)
}

// Orchestrator serializes import runs: a single worker goroutine executes
// requests one at a time, a second submission while one runs is rejected
// synchronously, and concurrent observers poll the guarded status snapshot
// plus the progress log by cursor.
type Orchestrator struct {
	logger  ectologger.Logger
	runner  Runner
	clearer StoreClearer
	events  ImportEventSink
	log     *ProgressLog

	requests chan string
	done     chan struct{}

	mu               sync.Mutex
	running          bool
	needsManualInput bool
	lastError        string
	lastSummary      *models.ImportSummary
	cancelCurrent    context.CancelFunc
}

// NewOrchestrator creates an orchestrator and starts its worker. events may
// be nil. log is the progress log the runner appends to; pass nil to create
// a fresh one. Call Shutdown to stop the worker.
func NewOrchestrator(logger ectologger.Logger, runner Runner, clearer StoreClearer, events ImportEventSink, log *ProgressLog) *Orchestrator {
	if log == nil {
		log = NewProgressLog()
	}
	o := &Orchestrator{
		logger:   logger,
		runner:   runner,
		clearer:  clearer,
		events:   events,
		log:      log,
		requests: make(chan string, 1),
		done:     make(chan struct{}),
	}

	go o.worker()

	return o
}

// Submit requests a full import of the source data at path. It returns
// ErrImportRunning if an import is already in flight; the caller polls
// Status for progress and the terminal outcome.
func (o *Orchestrator) Submit(path string) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrImportRunning
	}
	o.running = true
	o.needsManualInput = false
	o.lastError = ""
	o.mu.Unlock()

	o.log.Reset()
	o.requests <- path
	return nil
}

// ClearStore wipes the backing store. Refused while an import is running.
func (o *Orchestrator) ClearStore(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrImportRunning
	}
	o.mu.Unlock()

	return o.clearer.Clear(ctx)
}

// Status returns the current snapshot plus the log lines appended since the
// caller's cursor.
func (o *Orchestrator) Status(cursor int) models.ImportStatus {
	o.mu.Lock()
	status := models.ImportStatus{
		IsRunning:        o.running,
		NeedsManualInput: o.needsManualInput,
		LastError:        o.lastError,
		LastSummary:      o.lastSummary,
	}
	o.mu.Unlock()

	status.Log, status.NextCursor = o.log.Since(cursor)
	return status
}

// Cancel signals the in-flight run, if any, to stop at its next stage
// boundary. Partial writes of completed stages are not undone.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancelCurrent
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Shutdown stops the worker after the in-flight run, if any, finishes its
// current stage.
func (o *Orchestrator) Shutdown() {
	o.Cancel()
	close(o.requests)
	<-o.done
}

func (o *Orchestrator) worker() {
	defer close(o.done)
	for path := range o.requests {
		o.runOne(path)
	}
}

func (o *Orchestrator) runOne(path string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o.mu.Lock()
	o.cancelCurrent = cancel
	o.mu.Unlock()

	summary, err := o.runner.Run(ctx, path)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelCurrent = nil
	o.running = false

	switch {
	case err == nil:
		o.lastSummary = summary
		if o.events != nil {
			o.events.ImportCompleted(context.Background(), *summary)
		}
	case IsPathNotDetected(err):
		// not a failure: the operator has to point us at the data
		o.needsManualInput = true
		o.log.Append("Source data not found, waiting for a manual path")
		o.logger.WithError(err).Warn("Import needs manual input")
	default:
		o.lastError = err.Error()
		o.log.Append("Import failed: " + err.Error())
		o.logger.WithError(err).Error("Import failed")
	}
}
