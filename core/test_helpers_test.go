package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu       sync.Mutex
	counters []capturedCounter
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func (m *captureMetricsRecorder) hasCounter(name string, status string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, counter := range m.counters {
		if counter.name == name && counter.tags["status"] == status {
			return true
		}
	}
	return false
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]capturedLog, len(*l.records))
	copy(out, *l.records)
	return out
}

type stubLoggerProvider struct {
	logger Logger
}

func (p stubLoggerProvider) GetLogger(string) Logger {
	return p.logger
}

type fakeClient struct {
	mu         sync.Mutex
	identity   Identity
	meErr      error
	meCalls    int
	pages      map[string]RawPage
	fetchErr   error
	requests   []PageRequest
	credential AccessCredential
}

func (c *fakeClient) Me(context.Context) (Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meCalls++
	if c.meErr != nil {
		return Identity{}, c.meErr
	}
	return c.identity, nil
}

func (c *fakeClient) FetchSavedPage(_ context.Context, _ Identity, req PageRequest) (RawPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.fetchErr != nil {
		return RawPage{}, c.fetchErr
	}
	return c.pages[req.Cursor], nil
}

type fakeTransport struct {
	mu            sync.Mutex
	exchangeCalls []ExchangeRequest
	exchanged     AccessCredential
	exchangeErr   error
	buildCalls    []AccessCredential
	buildErr      error
	client        *fakeClient
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		exchanged: AccessCredential{AccessToken: "t"},
		client: &fakeClient{
			identity: Identity{ID: "t2_1", Name: "alice"},
			pages:    map[string]RawPage{},
		},
	}
}

func (f *fakeTransport) ExchangeGrant(_ context.Context, req ExchangeRequest) (AccessCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCalls = append(f.exchangeCalls, req)
	if f.exchangeErr != nil {
		return AccessCredential{}, f.exchangeErr
	}
	return f.exchanged, nil
}

func (f *fakeTransport) BuildClient(_ context.Context, credential AccessCredential) (ClientHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buildCalls = append(f.buildCalls, credential)
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	f.client.credential = credential
	return f.client, nil
}

func (f *fakeTransport) exchangeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.exchangeCalls)
}

type failingStore struct {
	err error
}

func (s failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, s.err
}

func (s failingStore) Set(context.Context, string, []byte) error {
	return s.err
}

func (s failingStore) Delete(context.Context, string) error {
	return s.err
}

var errBackendDown = errors.New("backend down")

func loginConfig() Config {
	cfg := DefaultConfig()
	cfg.ClientID = "client-1"
	cfg.RedirectURI = "http://localhost:8080/callback"
	return cfg
}

func fixedNonce(value string) NonceGenerator {
	return func() (string, error) {
		return value, nil
	}
}

func fixedTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}
