package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-saved/core"
)

type fakeBackend struct {
	mu         sync.Mutex
	state      core.SessionState
	restoreErr error
	loginErr   error
	grants     []core.Grant
	pageErr    error
	pages      map[string]core.Page
	block      map[string]chan struct{}
	calls      []string
	started    chan string

	restoreGate    chan struct{}
	restoreStarted chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		state:   core.SessionStateAuthenticated,
		pages:   map[string]core.Page{},
		block:   map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

func (f *fakeBackend) Restore(ctx context.Context) (core.SessionState, error) {
	f.mu.Lock()
	gate := f.restoreGate
	state, restoreErr := f.state, f.restoreErr
	f.mu.Unlock()

	if gate != nil {
		close(f.restoreStarted)
		select {
		case <-gate:
		case <-ctx.Done():
			return core.SessionStateUnauthenticated, ctx.Err()
		}
	}
	return state, restoreErr
}

func (f *fakeBackend) CompleteLogin(_ context.Context, grant core.Grant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants = append(f.grants, grant)
	return f.loginErr
}

func (f *fakeBackend) LoadPage(ctx context.Context, req core.PageRequest) (core.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Cursor)
	gate := f.block[req.Cursor]
	page := f.pages[req.Cursor]
	pageErr := f.pageErr
	state := f.state
	f.mu.Unlock()

	f.started <- req.Cursor
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return core.Page{}, ctx.Err()
		}
	}
	if state != core.SessionStateAuthenticated {
		return core.Page{}, &core.NotAuthenticatedError{State: state}
	}
	if pageErr != nil {
		return core.Page{}, pageErr
	}
	return page, nil
}

func startBridge(t *testing.T, backend Backend) *Bridge {
	t.Helper()
	counter := 0
	b := New(backend, WithIDGenerator(func() string {
		counter++
		return fmt.Sprintf("req-%d", counter)
	}))
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func nextEvent(t *testing.T, b *Bridge) Event {
	t.Helper()
	select {
	case event := <-b.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func expectNoEvent(t *testing.T, b *Bridge) {
	t.Helper()
	select {
	case event := <-b.Events():
		t.Fatalf("unexpected event %#v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBridge_RestoreEmitsReadyThenFirstPage(t *testing.T) {
	backend := newFakeBackend()
	backend.pages[""] = core.Page{Items: []core.SavedItem{{Name: "t3_1"}}, Cursor: "t3_1"}
	b := startBridge(t, backend)

	seq, err := b.InitializeSession(InitializeRequest{Restore: true})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	ready := nextEvent(t, b)
	if ready.Type != EventSessionReady || ready.Seq != seq {
		t.Fatalf("expected session ready, got %#v", ready)
	}
	page := nextEvent(t, b)
	if page.Type != EventPageReady || page.Seq != seq {
		t.Fatalf("expected page ready, got %#v", page)
	}
	if len(page.Items) != 1 || page.Items[0].Over18 || page.Items[0].Thumbnail != nil {
		t.Fatalf("unexpected items %#v", page.Items)
	}
	if page.Cursor != "t3_1" {
		t.Fatalf("expected cursor t3_1, got %q", page.Cursor)
	}
}

func TestBridge_GrantInitializeCompletesLogin(t *testing.T) {
	backend := newFakeBackend()
	b := startBridge(t, backend)

	if _, err := b.InitializeSession(InitializeRequest{Grant: &core.Grant{Code: "code123", State: "n1"}}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if event := nextEvent(t, b); event.Type != EventSessionReady {
		t.Fatalf("expected session ready, got %#v", event)
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.grants) != 1 || backend.grants[0].Code != "code123" {
		t.Fatalf("unexpected grants %#v", backend.grants)
	}
}

func TestBridge_SessionFailureReportsReason(t *testing.T) {
	backend := newFakeBackend()
	backend.loginErr = &core.StateMismatchError{}
	b := startBridge(t, backend)

	if _, err := b.InitializeSession(InitializeRequest{Grant: &core.Grant{Code: "c", State: "x"}}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	event := nextEvent(t, b)
	if event.Type != EventSessionFailed || event.Reason != "StateMismatchError" {
		t.Fatalf("unexpected event %#v", event)
	}
	expectNoEvent(t, b)
}

func TestBridge_RestoreWithoutCredentialFails(t *testing.T) {
	backend := newFakeBackend()
	backend.state = core.SessionStateUnauthenticated
	b := startBridge(t, backend)

	_, _ = b.InitializeSession(InitializeRequest{Restore: true})
	event := nextEvent(t, b)
	if event.Type != EventSessionFailed || event.Reason != "NotAuthenticatedError" {
		t.Fatalf("unexpected event %#v", event)
	}
}

func TestBridge_UnauthenticatedPageRequestFails(t *testing.T) {
	backend := newFakeBackend()
	backend.state = core.SessionStateUnauthenticated
	b := startBridge(t, backend)

	seq, err := b.RequestPage("")
	if err != nil {
		t.Fatalf("request page: %v", err)
	}
	event := nextEvent(t, b)
	if event.Type != EventPageFailed || event.Seq != seq || event.Reason != "NotAuthenticatedError" {
		t.Fatalf("unexpected event %#v", event)
	}
}

func TestBridge_RejectedFetchReportsAuthRejected(t *testing.T) {
	backend := newFakeBackend()
	backend.pageErr = &core.AuthRejectedError{StatusCode: 401}
	b := startBridge(t, backend)

	_, _ = b.RequestPage("")
	event := nextEvent(t, b)
	if event.Type != EventPageFailed || event.Reason != "AuthRejectedError" {
		t.Fatalf("unexpected event %#v", event)
	}
}

func TestBridge_LatestRequestWins(t *testing.T) {
	backend := newFakeBackend()
	gate := make(chan struct{})
	backend.block["c1"] = gate
	backend.pages["c2"] = core.Page{Items: []core.SavedItem{{Name: "t3_2"}}}
	b := startBridge(t, backend)

	first, err := b.RequestPage("c1")
	if err != nil {
		t.Fatalf("request c1: %v", err)
	}
	if cursor := <-backend.started; cursor != "c1" {
		t.Fatalf("expected c1 in flight, got %q", cursor)
	}
	second, err := b.RequestPage("c2")
	if err != nil {
		t.Fatalf("request c2: %v", err)
	}
	if second <= first {
		t.Fatalf("expected increasing sequence numbers, got %d then %d", first, second)
	}

	event := nextEvent(t, b)
	if event.Type != EventPageReady || event.Seq != second {
		t.Fatalf("expected page ready for latest request, got %#v", event)
	}
	close(gate)
	expectNoEvent(t, b)
}

func TestBridge_ConcurrentRequestsProduceOneEvent(t *testing.T) {
	backend := newFakeBackend()
	gate := make(chan struct{})
	backend.block["c"] = gate
	b := startBridge(t, backend)

	var wg sync.WaitGroup
	seqs := make(chan uint64, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := b.RequestPage("c")
			if err != nil {
				t.Errorf("request page: %v", err)
				return
			}
			seqs <- seq
		}()
	}
	wg.Wait()
	close(seqs)
	var latest uint64
	for seq := range seqs {
		if seq > latest {
			latest = seq
		}
	}
	close(gate)

	event := nextEvent(t, b)
	if event.Seq != latest {
		t.Fatalf("expected event for seq %d, got %#v", latest, event)
	}
	expectNoEvent(t, b)
}

func TestBridge_InitializeValidation(t *testing.T) {
	b := startBridge(t, newFakeBackend())
	if _, err := b.InitializeSession(InitializeRequest{}); err == nil {
		t.Fatalf("expected empty initialize to fail")
	}
	if _, err := b.InitializeSession(InitializeRequest{Restore: true, Grant: &core.Grant{Code: "c"}}); err == nil {
		t.Fatalf("expected ambiguous initialize to fail")
	}
}

func TestBridge_ClosedRejectsIntents(t *testing.T) {
	b := New(newFakeBackend())
	if _, err := b.RequestPage(""); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected not started, got %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := b.RequestPage(""); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed, got %v", err)
	}
	if _, ok := <-b.Events(); ok {
		t.Fatalf("expected events channel closed")
	}
}

func TestBridge_CloseAbandonsSlowRestore(t *testing.T) {
	backend := newFakeBackend()
	backend.restoreGate = make(chan struct{})
	backend.restoreStarted = make(chan struct{})
	defer close(backend.restoreGate)

	b := New(backend)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := b.InitializeSession(InitializeRequest{Restore: true}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	select {
	case <-backend.restoreStarted:
	case <-time.After(2 * time.Second):
		t.Fatalf("restore never started")
	}

	closed := make(chan error, 1)
	go func() { closed <- b.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("close blocked on restore")
	}
	for event := range b.Events() {
		if event.Type == EventSessionFailed || event.Type == EventSessionReady {
			t.Fatalf("expected abandoned session to emit nothing, got %#v", event)
		}
	}
}

func TestBridge_FailedSessionKeepsOutstandingPage(t *testing.T) {
	backend := newFakeBackend()
	gate := make(chan struct{})
	backend.block["c1"] = gate
	backend.pages["c1"] = core.Page{Items: []core.SavedItem{{Name: "t3_1"}}}
	b := startBridge(t, backend)

	pageSeq, err := b.RequestPage("c1")
	if err != nil {
		t.Fatalf("request page: %v", err)
	}
	if cursor := <-backend.started; cursor != "c1" {
		t.Fatalf("expected c1 in flight, got %q", cursor)
	}
	backend.mu.Lock()
	backend.restoreErr = &core.StorageError{Op: "get", Key: "redditAccess", Cause: errors.New("disk gone")}
	backend.mu.Unlock()
	sessionSeq, err := b.InitializeSession(InitializeRequest{Restore: true})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	close(gate)

	page := nextEvent(t, b)
	if page.Type != EventPageReady || page.Seq != pageSeq {
		t.Fatalf("expected page ready for outstanding request, got %#v", page)
	}
	session := nextEvent(t, b)
	if session.Type != EventSessionFailed || session.Seq != sessionSeq {
		t.Fatalf("expected session failed, got %#v", session)
	}
	expectNoEvent(t, b)
}

func TestBridge_PendingPageRunsAfterFailedSession(t *testing.T) {
	backend := newFakeBackend()
	gate := make(chan struct{})
	backend.block["c1"] = gate
	backend.restoreErr = &core.StorageError{Op: "get", Key: "redditAccess", Cause: errors.New("disk gone")}
	b := startBridge(t, backend)

	if _, err := b.RequestPage("c1"); err != nil {
		t.Fatalf("request c1: %v", err)
	}
	<-backend.started
	sessionSeq, err := b.InitializeSession(InitializeRequest{Restore: true})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	second, err := b.RequestPage("c2")
	if err != nil {
		t.Fatalf("request c2: %v", err)
	}
	close(gate)

	var sawSession, sawPage bool
	for !sawSession || !sawPage {
		event := nextEvent(t, b)
		switch {
		case event.Type == EventSessionFailed && event.Seq == sessionSeq:
			sawSession = true
		case event.Type == EventPageReady && event.Seq == second:
			sawPage = true
		default:
			t.Fatalf("unexpected event %#v", event)
		}
	}
	expectNoEvent(t, b)
}
