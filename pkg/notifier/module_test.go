package notifier

import (
	"context"
	"sync"
	"testing"
	"time"

	i18n "github.com/goliatone/go-i18n"

	"github.com/goliatone/go-live-notifications/internal/classifier"
	"github.com/goliatone/go-live-notifications/internal/inbox"
	"github.com/goliatone/go-live-notifications/pkg/config"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/adapters"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/platform"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
	"github.com/goliatone/go-live-notifications/pkg/storage"
)

func memoryConfig() config.Config {
	cfg := config.Defaults()
	cfg.Push.Transport = "memory"
	cfg.Identity.Store = "memory"
	cfg.Identity.PollInterval = 10 * time.Millisecond
	return cfg
}

func newTestModule(t *testing.T, providers storage.Providers) *Module {
	t.Helper()
	module, err := NewModule(ModuleOptions{
		Config:     memoryConfig(),
		Translator: moduleTranslator(t),
		Logger:     &logger.Nop{},
		Storage:    providers,
	})
	if err != nil {
		t.Fatalf("module: %v", err)
	}
	return module
}

func TestModuleConstruction(t *testing.T) {
	module := newTestModule(t, storage.NewMemoryProviders())
	if module.Manager() == nil {
		t.Fatalf("expected manager")
	}
	if module.Commands() == nil {
		t.Fatalf("expected commands registry")
	}
	if module.Inbox() == nil || module.Toasts() == nil || module.Identity() == nil {
		t.Fatalf("expected inbox, toast and identity services")
	}
	got := module.AdapterRegistry().Names(adapters.ChannelCue)
	want := []string{"desktop", "tone", "desktop-silent", "clip"}
	if len(got) != len(want) {
		t.Fatalf("expected cue tiers %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tier %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestModuleRejectsUnknownTransport(t *testing.T) {
	cfg := memoryConfig()
	cfg.Push.Transport = "carrier-pigeon"
	if _, err := NewModule(ModuleOptions{Config: cfg}); err == nil {
		t.Fatalf("expected invalid transport to fail")
	}
}

func TestManagerSendRequiresPayload(t *testing.T) {
	module := newTestModule(t, storage.NewMemoryProviders())
	if _, err := module.Manager().Send(context.Background(), nil); err != ErrEmptyEvent {
		t.Fatalf("expected ErrEmptyEvent, got %v", err)
	}
}

func TestManagerSendDeduplicates(t *testing.T) {
	module := newTestModule(t, storage.NewMemoryProviders())
	evt := Event{
		"eventId":    "E1",
		"eventTitle": "Budget Review",
		"status":     "approved",
		"timestamp":  "2026-01-02T03:04:05Z",
	}
	first, err := module.Manager().Send(context.Background(), evt)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !first.Admitted {
		t.Fatalf("expected first send admitted")
	}
	second, err := module.Manager().Send(context.Background(), evt)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if second.Admitted {
		t.Fatalf("expected repeated send to be a duplicate")
	}
	module.Container().Delivery.Wait()
	if visible := module.Toasts().Visible(); len(visible) != 1 {
		t.Fatalf("expected one toast, got %d", len(visible))
	}
}

type countingDesktop struct {
	mu    sync.Mutex
	shows int
}

func (d *countingDesktop) Permission() platform.Permission { return platform.PermissionGranted }

func (d *countingDesktop) RequestPermission(context.Context) (platform.Permission, error) {
	return platform.PermissionGranted, nil
}

func (d *countingDesktop) Show(context.Context, platform.DesktopNotice) (platform.Handle, error) {
	d.mu.Lock()
	d.shows++
	d.mu.Unlock()
	return platform.HandleFunc(func() error { return nil }), nil
}

func (d *countingDesktop) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shows
}

func TestManagerSendCollapsesTimestampJitter(t *testing.T) {
	desktop := &countingDesktop{}
	module, err := NewModule(ModuleOptions{
		Config:       memoryConfig(),
		Translator:   moduleTranslator(t),
		Logger:       &logger.Nop{},
		Storage:      storage.NewMemoryProviders(),
		Capabilities: platform.Capabilities{Desktop: desktop},
	})
	if err != nil {
		t.Fatalf("module: %v", err)
	}

	base := Event{
		"eventId":    "E1",
		"eventTitle": "Budget Review",
		"status":     "approved",
	}
	var results []bool
	for _, ts := range []string{"2026-01-02T03:04:05.000Z", "2026-01-02T03:04:05.010Z"} {
		evt := Event{"timestamp": ts}
		for k, v := range base {
			evt[k] = v
		}
		res, err := module.Manager().Send(context.Background(), evt)
		if err != nil {
			t.Fatalf("send %s: %v", ts, err)
		}
		results = append(results, res.Admitted)
	}
	if !results[0] || results[1] {
		t.Fatalf("expected only the first payload admitted, got %v", results)
	}

	module.Container().Delivery.Wait()
	if visible := module.Toasts().Visible(); len(visible) != 1 {
		t.Fatalf("expected one toast, got %d", len(visible))
	}
	if got := desktop.count(); got != 1 {
		t.Fatalf("expected one cue attempt, got %d", got)
	}
}

func TestModuleRunDeliversPushedEvents(t *testing.T) {
	providers := storage.NewMemoryProviders()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := providers.Sessions.Activate(ctx, &domain.SessionRecord{ViewerID: "u1", DisplayName: "Ana"}); err != nil {
		t.Fatalf("activate session: %v", err)
	}
	module := newTestModule(t, providers)

	done := make(chan error, 1)
	go func() { done <- module.Run(ctx) }()

	waitFor(t, func() bool {
		viewer, active := module.Manager().Viewer()
		return active && viewer.ViewerID == "u1"
	})

	n := module.Publish(ctx, domain.RawEvent{
		EventID:    "E9",
		EventTitle: "Town Hall",
		Requestor:  "Maria",
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if n != 1 {
		t.Fatalf("expected one subscriber to receive the event, got %d", n)
	}

	waitFor(t, func() bool {
		res, err := module.Inbox().List(ctx, "u1", store.ListOptions{}, inbox.ListFilters{})
		return err == nil && len(res.Items) == 1
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("module did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func moduleTranslator(t *testing.T) i18n.Translator {
	t.Helper()
	translator, err := i18n.NewSimpleTranslator(
		i18n.NewStaticStore(classifier.Translations()),
		i18n.WithTranslatorDefaultLocale("en"),
	)
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	return translator
}
