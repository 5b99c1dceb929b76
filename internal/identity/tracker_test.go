package identity

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-live-notifications/internal/storage/memory"
	"github.com/goliatone/go-live-notifications/pkg/activity"
	"github.com/goliatone/go-live-notifications/pkg/domain"
)

type recordingHook struct {
	mu     sync.Mutex
	events []activity.Event
}

func (r *recordingHook) Notify(_ context.Context, evt activity.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

type failingSource struct{}

func (failingSource) Active(context.Context) (*domain.SessionRecord, error) {
	return nil, errors.New("disk gone")
}

func TestTrackerStartsUnknown(t *testing.T) {
	tracker, err := New(Dependencies{Source: memory.NewSessionRepository()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	current, changed := tracker.Refresh(context.Background())
	if changed {
		t.Fatalf("expected no change without a session")
	}
	if current.IsKnown() || current.DisplayName != domain.UnknownViewer {
		t.Fatalf("expected unknown viewer, got %+v", current)
	}
}

func TestTrackerPublishesChange(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionRepository()
	hook := &recordingHook{}
	tracker, _ := New(Dependencies{Source: repo, Activity: activity.Hooks{hook}})

	if err := repo.Activate(ctx, &domain.SessionRecord{
		ViewerID:    "u-1",
		DisplayName: "Ana",
		Department:  "PGSO",
		Preferences: domain.JSONMap{"cue.muted": true},
	}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	current, changed := tracker.Refresh(ctx)
	if !changed || current.ViewerID != "u-1" {
		t.Fatalf("expected change to u-1, got %+v changed=%v", current, changed)
	}
	select {
	case got := <-tracker.Changes():
		if got.ViewerID != "u-1" {
			t.Fatalf("unexpected change %+v", got)
		}
	default:
		t.Fatalf("expected a change on the stream")
	}
	if prefs := tracker.Preferences(ctx); prefs["cue.muted"] != true {
		t.Fatalf("expected preferences from session, got %+v", prefs)
	}
	if len(hook.events) != 1 || hook.events[0].Verb != activity.VerbIdentityChanged {
		t.Fatalf("expected identity activity, got %+v", hook.events)
	}

	if _, changed := tracker.Refresh(ctx); changed {
		t.Fatalf("expected no change on identical refresh")
	}

	if err := repo.Deactivate(ctx); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	current, changed = tracker.Refresh(ctx)
	if !changed || current.IsKnown() {
		t.Fatalf("expected logout to unknown, got %+v", current)
	}
}

func TestTrackerKeepsLatestChangeOnly(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionRepository()
	tracker, _ := New(Dependencies{Source: repo})

	_ = repo.Activate(ctx, &domain.SessionRecord{ViewerID: "a"})
	tracker.Refresh(ctx)
	_ = repo.Activate(ctx, &domain.SessionRecord{ViewerID: "b"})
	tracker.Refresh(ctx)

	got := <-tracker.Changes()
	if got.ViewerID != "b" {
		t.Fatalf("expected latest identity b, got %+v", got)
	}
	select {
	case extra := <-tracker.Changes():
		t.Fatalf("unexpected stale change %+v", extra)
	default:
	}
}

func TestTrackerReadErrorKeepsIdentity(t *testing.T) {
	tracker, _ := New(Dependencies{Source: failingSource{}})
	current, changed := tracker.Refresh(context.Background())
	if changed || current.IsKnown() {
		t.Fatalf("expected unchanged unknown identity, got %+v", current)
	}
}

func TestTrackerRunPollsAndNotifies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := memory.NewSessionRepository()
	tracker, _ := New(Dependencies{Source: repo, PollInterval: time.Hour})

	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()

	_ = repo.Activate(context.Background(), &domain.SessionRecord{ViewerID: "u-9"})
	tracker.Notify()

	select {
	case got := <-tracker.Changes():
		if got.ViewerID != "u-9" {
			t.Fatalf("unexpected identity %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected storage signal to trigger refresh")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestFromRecordUsesTokenClaims(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        "u-42",
		"name":       "Ben",
		"department": "Engineering",
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	identity := FromRecord(&domain.SessionRecord{Token: token})
	if identity.ViewerID != "u-42" || identity.DisplayName != "Ben" || identity.Department != "Engineering" {
		t.Fatalf("unexpected identity %+v", identity)
	}

	identity = FromRecord(&domain.SessionRecord{ViewerID: "u-1", Token: "Bearer " + token})
	if identity.ViewerID != "u-1" || identity.DisplayName != "Ben" {
		t.Fatalf("expected record fields to win, got %+v", identity)
	}

	if got := FromRecord(&domain.SessionRecord{Token: "not-a-jwt"}); got.IsKnown() {
		t.Fatalf("expected unknown for garbage token, got %+v", got)
	}
}

func TestMaskToken(t *testing.T) {
	masked := MaskToken("abcdefghij")
	if masked == "abcdefghij" || masked == "" {
		t.Fatalf("unexpected mask %q", masked)
	}
	if MaskToken("") != "" {
		t.Fatalf("expected empty mask for empty token")
	}
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	source := FileSource{Path: filepath.Join(t.TempDir(), "session", "current.json")}

	if _, err := source.Active(ctx); err == nil {
		t.Fatalf("expected not found for missing file")
	}
	if err := source.Save(&domain.SessionRecord{ViewerID: "u-5", DisplayName: "Cy"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	record, err := source.Active(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if record.ViewerID != "u-5" {
		t.Fatalf("unexpected record %+v", record)
	}
	if err := source.Save(nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := source.Active(ctx); err == nil {
		t.Fatalf("expected not found after clear")
	}
}
