package query

import (
	"context"

	"github.com/goliatone/go-saved/core"
)

type StatusReader interface {
	Status() core.SessionStatus
}

type PageLoader interface {
	LoadPage(ctx context.Context, req core.PageRequest) (core.Page, error)
}

type SessionStatusQuery struct {
	reader StatusReader
}

func NewSessionStatusQuery(reader StatusReader) *SessionStatusQuery {
	return &SessionStatusQuery{reader: reader}
}

func (q *SessionStatusQuery) Query(_ context.Context, _ SessionStatusMessage) (core.SessionStatus, error) {
	if q == nil || q.reader == nil {
		return core.SessionStatus{}, queryDependencyError("query: session status reader is required")
	}
	return q.reader.Status(), nil
}

type LoadPageQuery struct {
	loader PageLoader
}

func NewLoadPageQuery(loader PageLoader) *LoadPageQuery {
	return &LoadPageQuery{loader: loader}
}

func (q *LoadPageQuery) Query(ctx context.Context, msg LoadPageMessage) (core.Page, error) {
	if q == nil || q.loader == nil {
		return core.Page{}, queryDependencyError("query: page loader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Page{}, queryWrapValidation(err, "query: invalid load page message")
	}
	return q.loader.LoadPage(ctx, core.PageRequest{Cursor: msg.Cursor, Limit: msg.Limit})
}
