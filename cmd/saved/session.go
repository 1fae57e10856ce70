package main

import (
	"context"
	"errors"
	"fmt"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-saved/adapters/gocommand"
	"github.com/goliatone/go-saved/bridge"
	savedcommand "github.com/goliatone/go-saved/command"
	"github.com/goliatone/go-saved/core"
	savedquery "github.com/goliatone/go-saved/query"
)

var errNotLoggedIn = errors.New("not logged in, run `saved login` first")

// dispatchIntent sends msg through the command bus and returns the
// sequence number the bridge assigned to it.
func dispatchIntent[T any](ctx context.Context, msg T) (uint64, error) {
	collector := gocmd.NewResult[savedcommand.Accepted]()
	if err := gocommand.Dispatch(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		return 0, err
	}
	accepted, ok := collector.Load()
	if !ok {
		return 0, fmt.Errorf("command %T was not accepted", msg)
	}
	return accepted.Seq, nil
}

// initialize starts the session with req and waits for its outcome. The
// returned seq tags the first page the bridge fetches afterwards.
func (r *runtime) initialize(ctx context.Context, msg savedcommand.InitializeSessionMessage) (uint64, error) {
	seq, err := dispatchIntent(ctx, msg)
	if err != nil {
		return 0, err
	}
	event, err := r.waitFor(ctx, func(e bridge.Event) bool {
		return e.Seq == seq && (e.Type == bridge.EventSessionReady || e.Type == bridge.EventSessionFailed)
	})
	if err != nil {
		return 0, err
	}
	if event.Type == bridge.EventSessionFailed {
		if errors.Is(event.Err, core.ErrNotAuthenticated) {
			return 0, errNotLoggedIn
		}
		return 0, fmt.Errorf("session failed (%s): %w", event.Reason, event.Err)
	}
	return seq, nil
}

// page waits for the page tagged seq, requesting cursor first when set.
func (r *runtime) page(ctx context.Context, seq uint64, cursor string) (bridge.Event, error) {
	if cursor != "" {
		next, err := dispatchIntent(ctx, savedcommand.RequestPageMessage{Cursor: cursor})
		if err != nil {
			return bridge.Event{}, err
		}
		seq = next
	}
	event, err := r.waitFor(ctx, func(e bridge.Event) bool {
		return e.Seq == seq && (e.Type == bridge.EventPageReady || e.Type == bridge.EventPageFailed)
	})
	if err != nil {
		return bridge.Event{}, err
	}
	if event.Type == bridge.EventPageFailed {
		return event, fmt.Errorf("page failed (%s): %w", event.Reason, event.Err)
	}
	return event, nil
}

func (r *runtime) waitFor(ctx context.Context, match func(bridge.Event) bool) (bridge.Event, error) {
	events := r.facade.Events()
	for {
		select {
		case <-ctx.Done():
			return bridge.Event{}, ctx.Err()
		case event, ok := <-events:
			if !ok {
				return bridge.Event{}, bridge.ErrClosed
			}
			if match(event) {
				return event, nil
			}
		}
	}
}

func (r *runtime) status(ctx context.Context) (core.SessionStatus, error) {
	return gocommand.Query[savedquery.SessionStatusMessage, core.SessionStatus](ctx, savedquery.SessionStatusMessage{})
}

func (r *runtime) beginLogin(ctx context.Context) (core.AuthorizationRequest, error) {
	collector := gocmd.NewResult[core.AuthorizationRequest]()
	if err := gocommand.Dispatch(gocmd.ContextWithResult(ctx, collector), savedcommand.BeginLoginMessage{}); err != nil {
		return core.AuthorizationRequest{}, err
	}
	request, ok := collector.Load()
	if !ok {
		return core.AuthorizationRequest{}, fmt.Errorf("login request was not produced")
	}
	return request, nil
}
