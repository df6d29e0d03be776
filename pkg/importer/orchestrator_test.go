package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	summary *models.ImportSummary
	err     error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
		summary: &models.ImportSummary{CityCount: 2},
	}
}

func (r *blockingRunner) Run(ctx context.Context, path string) (*models.ImportSummary, error) {
	r.started <- struct{}{}
	<-r.release
	return r.summary, r.err
}

type fakeClearer struct {
	mu    sync.Mutex
	calls int
}

func (c *fakeClearer) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

type importSink struct {
	mu        sync.Mutex
	summaries []models.ImportSummary
}

func (s *importSink) ImportCompleted(ctx context.Context, summary models.ImportSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func waitNotRunning(t *testing.T, o *Orchestrator) models.ImportStatus {
	t.Helper()
	assert.Eventually(t, func() bool {
		return !o.Status(0).IsRunning
	}, time.Second, 5*time.Millisecond)
	return o.Status(0)
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	runner := newBlockingRunner()
	clearer := &fakeClearer{}
	o := NewOrchestrator(testLogger(), runner, clearer, nil, nil)
	defer o.Shutdown()

	assert.NoError(t, o.Submit("/games/ets2"))
	<-runner.started

	// a second submission while one runs is rejected, not queued
	err := o.Submit("/games/ets2")
	assert.ErrorIs(t, err, ErrImportRunning)
	assert.Equal(t, 409, httperror.GetStatusCode(err))

	// clearing the store is refused while running
	err = o.ClearStore(context.Background())
	assert.ErrorIs(t, err, ErrImportRunning)
	assert.Equal(t, 0, clearer.calls)

	assert.True(t, o.Status(0).IsRunning)

	close(runner.release)
	status := waitNotRunning(t, o)
	if assert.NotNil(t, status.LastSummary) {
		assert.Equal(t, 2, status.LastSummary.CityCount)
	}
	assert.Empty(t, status.LastError)

	// accepted again once idle
	assert.NoError(t, o.ClearStore(context.Background()))
	assert.Equal(t, 1, clearer.calls)
}

func TestOrchestrator_EmitsCompletionEvent(t *testing.T) {
	runner := newBlockingRunner()
	sink := &importSink{}
	o := NewOrchestrator(testLogger(), runner, &fakeClearer{}, sink, nil)
	defer o.Shutdown()

	assert.NoError(t, o.Submit("/games/ets2"))
	close(runner.release)
	waitNotRunning(t, o)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if assert.Len(t, sink.summaries, 1) {
		assert.Equal(t, 2, sink.summaries[0].CityCount)
	}
}

func TestOrchestrator_PathNotDetectedNeedsManualInput(t *testing.T) {
	runner := newBlockingRunner()
	runner.summary = nil
	runner.err = &PathNotDetectedError{Path: "/nowhere"}
	o := NewOrchestrator(testLogger(), runner, &fakeClearer{}, nil, nil)
	defer o.Shutdown()

	assert.NoError(t, o.Submit("/nowhere"))
	close(runner.release)

	status := waitNotRunning(t, o)
	assert.True(t, status.NeedsManualInput)
	// needs-manual-input is not a failed run
	assert.Empty(t, status.LastError)
}

func TestOrchestrator_FailureRecorded(t *testing.T) {
	runner := newBlockingRunner()
	runner.summary = nil
	runner.err = errors.New("store unavailable")
	o := NewOrchestrator(testLogger(), runner, &fakeClearer{}, nil, nil)
	defer o.Shutdown()

	assert.NoError(t, o.Submit("/games/ets2"))
	close(runner.release)

	status := waitNotRunning(t, o)
	assert.Equal(t, "store unavailable", status.LastError)
	assert.False(t, status.NeedsManualInput)
	assert.Nil(t, status.LastSummary)

	// the failure is surfaced, not retried: a new submit is accepted
	assert.NoError(t, o.Submit("/games/ets2"))
}

func TestOrchestrator_StatusCursor(t *testing.T) {
	runner := newBlockingRunner()
	runner.summary = nil
	runner.err = errors.New("boom")
	o := NewOrchestrator(testLogger(), runner, &fakeClearer{}, nil, nil)
	defer o.Shutdown()

	assert.NoError(t, o.Submit("/games/ets2"))
	close(runner.release)
	status := waitNotRunning(t, o)

	assert.NotEmpty(t, status.Log)
	next := status.NextCursor

	followup := o.Status(next)
	assert.Empty(t, followup.Log)
	assert.Equal(t, next, followup.NextCursor)
}
