package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	gotemplate "github.com/goliatone/go-template"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

const defaultLayout = `{{ title|safe }}
{{ body|safe }}{% if event_title %}
Event: {{ event_title|safe }}{% endif %}{% if requestor %}
Requested by: {{ requestor|safe }}{% endif %}{% if department %}
Department: {{ department|safe }}{% endif %}{% if schedule %}
Schedule: {{ schedule|safe }}{% endif %}
{{ timestamp|safe }}{% if action_url %} · {{ action_url|safe }}{% endif %}`

// Surface renders toasts to a terminal.
type Surface struct {
	mu       sync.Mutex
	out      io.Writer
	layout   string
	renderer *gotemplate.Engine
	box      lipgloss.Style
	logger   logger.Logger
	plain    bool
}

type Option func(*Surface)

// WithWriter overrides the destination (defaults to stdout).
func WithWriter(w io.Writer) Option {
	return func(s *Surface) {
		if w != nil {
			s.out = w
		}
	}
}

// WithLayout overrides the toast template.
func WithLayout(layout string) Option {
	return func(s *Surface) {
		if strings.TrimSpace(layout) != "" {
			s.layout = layout
		}
	}
}

// WithPlain disables the bordered box.
func WithPlain(enabled bool) Option {
	return func(s *Surface) {
		s.plain = enabled
	}
}

// New constructs a console toast surface.
func New(l logger.Logger, opts ...Option) (*Surface, error) {
	renderer, err := gotemplate.NewRenderer(gotemplate.WithBaseDir("."))
	if err != nil {
		return nil, fmt.Errorf("console: renderer: %w", err)
	}
	s := &Surface{
		out:      os.Stdout,
		layout:   defaultLayout,
		renderer: renderer,
		logger:   logger.OrNop(l),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Render formats a toast without writing it.
func (s *Surface) Render(toast domain.Toast) (string, error) {
	payload := map[string]any{
		"id":          toast.ID,
		"title":       lipgloss.NewStyle().Bold(true).Render(toast.Title),
		"body":        toast.Body,
		"event_title": toast.EventTitle,
		"requestor":   toast.Requestor,
		"department":  toast.Department,
		"schedule":    toast.Schedule,
		"timestamp":   toast.Timestamp,
		"action_url":  toast.ActionURL,
	}
	if s.plain {
		payload["title"] = toast.Title
	}
	text, err := s.renderer.RenderString(s.layout, payload)
	if err != nil {
		return "", fmt.Errorf("console: render toast: %w", err)
	}
	if s.plain {
		return text, nil
	}
	return s.box.Render(text), nil
}

// Show implements the toast surface.
func (s *Surface) Show(_ context.Context, toast domain.Toast) error {
	text, err := s.Render(toast)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = fmt.Fprintln(s.out, text)
	return err
}

// Hide implements the toast surface.
func (s *Surface) Hide(_ context.Context, id string) error {
	s.logger.Debug("console: toast dismissed", logger.F("toast_id", id))
	return nil
}
