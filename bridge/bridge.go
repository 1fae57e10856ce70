package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-saved/core"
)

const defaultEventBuffer = 16

// Backend is the pipeline the bridge drives. *core.Service satisfies it.
// Calls must return once their ctx is cancelled; Close waits for them.
type Backend interface {
	Restore(ctx context.Context) (core.SessionState, error)
	CompleteLogin(ctx context.Context, grant core.Grant) error
	LoadPage(ctx context.Context, req core.PageRequest) (core.Page, error)
}

type Option func(*Bridge)

func WithLogger(logger glog.Logger) Option {
	return func(b *Bridge) {
		b.logger = glog.Ensure(logger)
	}
}

func WithEventBuffer(size int) Option {
	return func(b *Bridge) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

func WithIDGenerator(next func() string) Option {
	return func(b *Bridge) {
		if next != nil {
			b.nextID = next
		}
	}
}

type sessionJob struct {
	seq     uint64
	id      string
	request InitializeRequest
}

type pageJob struct {
	seq    uint64
	id     string
	cursor string
}

// Bridge serializes session intents and page fetches on one worker.
type Bridge struct {
	backend    Backend
	logger     glog.Logger
	bufferSize int
	nextID     func() string

	seq      atomic.Uint64
	events   chan Event
	sessions chan sessionJob
	wake     chan struct{}
	done     chan struct{}

	mu          sync.Mutex
	pending     *pageJob
	latestPage  uint64
	inflightSeq uint64
	cancel      context.CancelFunc
	stop        context.CancelFunc
	started     bool
	closed      bool
	wg          sync.WaitGroup
}

func New(backend Backend, opts ...Option) *Bridge {
	b := &Bridge{
		backend:    backend,
		logger:     glog.Nop(),
		bufferSize: defaultEventBuffer,
		nextID:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.events = make(chan Event, b.bufferSize)
	b.sessions = make(chan sessionJob, b.bufferSize)
	b.wake = make(chan struct{}, 1)
	b.done = make(chan struct{})
	return b
}

// Events is closed after Close returns.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// Start launches the worker. Cancelling ctx stops the worker; Close must
// still be called to release Events. The worker runs on a child of ctx that
// Close cancels, so a session intent in progress is abandoned on Close.
func (b *Bridge) Start(ctx context.Context) error {
	if b == nil || b.backend == nil {
		return errors.New("bridge: backend is not configured")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.started {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, stop := context.WithCancel(ctx)
	b.stop = stop
	b.started = true
	b.wg.Add(1)
	go b.run(runCtx)
	return nil
}

// Close stops the worker, cancels any in-flight fetch and closes Events.
func (b *Bridge) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	if b.cancel != nil {
		b.cancel()
	}
	if b.stop != nil {
		b.stop()
	}
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	close(b.events)
	return nil
}

// InitializeSession queues a session intent and returns its sequence number.
// A successful initialization is followed by a first page fetch with no
// cursor under the same sequence number. A fetch already in flight is left
// to finish and is only superseded by that first fetch.
func (b *Bridge) InitializeSession(req InitializeRequest) (uint64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if err := b.acceptingIntents(); err != nil {
		return 0, err
	}
	job := sessionJob{seq: b.seq.Add(1), id: b.nextID(), request: req}
	select {
	case b.sessions <- job:
		return job.seq, nil
	case <-b.done:
		return 0, ErrClosed
	}
}

// RequestPage queues a fetch after cursor, superseding any earlier request.
func (b *Bridge) RequestPage(cursor string) (uint64, error) {
	if err := b.acceptingIntents(); err != nil {
		return 0, err
	}
	job := pageJob{seq: b.seq.Add(1), id: b.nextID(), cursor: strings.TrimSpace(cursor)}
	b.schedule(job)
	return job.seq, nil
}

func (b *Bridge) acceptingIntents() error {
	if b == nil {
		return ErrNotStarted
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if !b.started {
		return ErrNotStarted
	}
	return nil
}

// schedule keeps only the highest-sequence page job and cancels an older
// in-flight fetch. A job older than the latest page request is dropped.
func (b *Bridge) schedule(job pageJob) {
	b.mu.Lock()
	if job.seq <= b.latestPage {
		b.mu.Unlock()
		return
	}
	b.latestPage = job.seq
	queued := job
	b.pending = &queued
	if b.cancel != nil && b.inflightSeq < job.seq {
		b.cancel()
	}
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// latest reports whether seq is still the newest page request.
func (b *Bridge) latest(seq uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latestPage == seq
}

func (b *Bridge) run(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case <-ctx.Done():
			return
		case job := <-b.sessions:
			b.runSession(ctx, job)
			continue
		default:
		}

		select {
		case <-b.done:
			return
		case <-ctx.Done():
			return
		case job := <-b.sessions:
			b.runSession(ctx, job)
		case <-b.wake:
			if job, ok := b.takePending(); ok {
				b.runPage(ctx, job)
			}
		}
	}
}

func (b *Bridge) takePending() (pageJob, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return pageJob{}, false
	}
	job := *b.pending
	b.pending = nil
	return job, true
}

func (b *Bridge) runSession(ctx context.Context, job sessionJob) {
	logger := b.logger.WithContext(ctx)
	var err error
	if job.request.Grant != nil {
		err = b.backend.CompleteLogin(ctx, *job.request.Grant)
	} else {
		var state core.SessionState
		state, err = b.backend.Restore(ctx)
		if err == nil && state != core.SessionStateAuthenticated {
			err = &core.NotAuthenticatedError{State: state}
		}
	}
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			logger.Debug("session initialization abandoned", "seq", job.seq, "correlation_id", job.id)
			return
		}
		logger.Warn("session initialization failed", "seq", job.seq, "correlation_id", job.id, "reason", core.ErrorReason(err), "error", err)
		b.emit(Event{Type: EventSessionFailed, Seq: job.seq, CorrelationID: job.id, Reason: core.ErrorReason(err), Err: err})
		return
	}
	logger.Info("session initialized", "seq", job.seq, "correlation_id", job.id)
	b.emit(Event{Type: EventSessionReady, Seq: job.seq, CorrelationID: job.id})
	b.schedule(pageJob{seq: job.seq, id: job.id})
}

func (b *Bridge) runPage(ctx context.Context, job pageJob) {
	logger := b.logger.WithContext(ctx)
	if !b.latest(job.seq) {
		logger.Debug("page request superseded before start", "seq", job.seq, "correlation_id", job.id)
		return
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.inflightSeq = job.seq
	b.cancel = cancel
	b.mu.Unlock()

	page, err := b.backend.LoadPage(fetchCtx, core.PageRequest{Cursor: job.cursor})

	b.mu.Lock()
	b.cancel = nil
	b.inflightSeq = 0
	b.mu.Unlock()
	cancel()

	if !b.latest(job.seq) {
		logger.Debug("page result discarded", "seq", job.seq, "correlation_id", job.id)
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		logger.Warn("page request failed", "seq", job.seq, "correlation_id", job.id, "reason", core.ErrorReason(err), "error", err)
		b.emit(Event{Type: EventPageFailed, Seq: job.seq, CorrelationID: job.id, Reason: core.ErrorReason(err), Err: err})
		return
	}
	b.emit(Event{
		Type:          EventPageReady,
		Seq:           job.seq,
		CorrelationID: job.id,
		Items:         page.Items,
		Cursor:        page.Cursor,
		Dropped:       page.Dropped,
	})
}

func (b *Bridge) emit(event Event) {
	select {
	case b.events <- event:
	case <-b.done:
	}
}
