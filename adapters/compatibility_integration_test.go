package adapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	saved "github.com/goliatone/go-saved"
	"github.com/goliatone/go-saved/adapters/gocommand"
	"github.com/goliatone/go-saved/adapters/gologger"
	"github.com/goliatone/go-saved/bridge"
	savedcommand "github.com/goliatone/go-saved/command"
	"github.com/goliatone/go-saved/core"
	"github.com/goliatone/go-saved/providers/devkit"
	savedquery "github.com/goliatone/go-saved/query"
)

func TestRuntimeCompatibility_GoCommandGoJobZap(t *testing.T) {
	ctx := context.Background()

	zapCore, logs := observer.New(zap.DebugLevel)
	logger := gologger.FromZap(zap.New(zapCore))

	store := core.NewMemoryStore()
	if err := core.SaveJSON(ctx, store, core.DefaultAccessKey, core.AccessCredential{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	adapter := devkit.NewFakeTransportAdapter("rest",
		devkit.MeScript("abc", "alice"),
		devkit.ListingScript("t1_c", devkit.PostChild("t3_p", "Post", "nsfw"), devkit.CommentChild("t1_c", "Linked", "hi")),
	)

	cfg := saved.DefaultConfig()
	cfg.Provider.APIBaseURL = "https://api.test"
	facade, err := saved.New(cfg,
		saved.WithLoggerProvider(logger),
		saved.WithStore(store),
		saved.WithTransportFactory(saved.RedditTransportFactory(adapter)),
	)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	if err := facade.Start(ctx); err != nil {
		t.Fatalf("start facade: %v", err)
	}
	defer facade.Close()

	queueRegistry := jobqueuecommand.NewRegistry()
	registry := gocommand.NewRegistryAdapter(command.NewRegistry())
	defer registry.Close()
	if err := registry.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := facade.Register(registry); err != nil {
		t.Fatalf("register facade handlers: %v", err)
	}
	if _, ok := queueRegistry.Get(savedcommand.TypeInitializeSession); !ok {
		t.Fatalf("expected initialize command mirrored into the go-job queue registry")
	}

	if err := gocommand.Dispatch(ctx, savedcommand.InitializeSessionMessage{Restore: true}); err != nil {
		t.Fatalf("dispatch initialize: %v", err)
	}

	var page bridge.Event
	for page.Type != bridge.EventPageReady {
		select {
		case event := <-facade.Events():
			if event.Failed() {
				t.Fatalf("unexpected failure event %#v", event)
			}
			page = event
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for page_ready")
		}
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected post and comment, got %d items", len(page.Items))
	}
	if page.Items[0].Thumbnail != nil {
		t.Fatalf("expected placeholder thumbnail to normalize to null")
	}
	if page.Items[1].Title != "Linked" || page.Items[1].Kind != core.ItemKindComment {
		t.Fatalf("unexpected comment item %#v", page.Items[1])
	}

	status, err := gocommand.Query[savedquery.SessionStatusMessage, core.SessionStatus](ctx, savedquery.SessionStatusMessage{})
	if err != nil {
		t.Fatalf("query status: %v", err)
	}
	if status.State != core.SessionStateAuthenticated || status.Identity == nil || status.Identity.Name != "alice" {
		t.Fatalf("unexpected status %#v", status)
	}

	if logs.FilterMessage("load_page succeeded").Len() == 0 {
		t.Fatalf("expected zap to receive the load_page log, got %d entries", logs.Len())
	}
}
