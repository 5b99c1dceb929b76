package platform

import (
	"context"
	"errors"
	"time"
)

// Permission is the coarse grant state of the desktop notification capability.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ErrUnsupported is returned by capabilities missing on the host.
var ErrUnsupported = errors.New("platform: capability not supported")

// DesktopNotice is a system popup request.
type DesktopNotice struct {
	Title  string
	Body   string
	Tag    string
	Silent bool
}

// Handle closes a displayed desktop notification.
type Handle interface {
	Close() error
}

// DesktopNotifier is the OS notification capability.
type DesktopNotifier interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, notice DesktopNotice) (Handle, error)
}

// ToneContext is the tone synthesis resource. It starts suspended and must be
// resumed from a user gesture before it can emit sound.
type ToneContext interface {
	Resume(ctx context.Context) error
	Play(ctx context.Context, samples []float64, sampleRate int) error
	Close() error
}

// ToneContextFactory constructs the tone resource.
type ToneContextFactory func() (ToneContext, error)

// ClipPlayer is the generic audio playback primitive.
type ClipPlayer interface {
	Play(ctx context.Context, path string) error
}

// Capabilities groups the host capabilities consumed by the engine.
type Capabilities struct {
	Desktop     DesktopNotifier
	ToneFactory ToneContextFactory
	Clips       ClipPlayer
	// DisplayFor bounds how long desktop notices remain open.
	DisplayFor time.Duration
}

// NopDesktop reports denied permission and refuses to show notices.
type NopDesktop struct{}

func (NopDesktop) Permission() Permission { return PermissionDenied }

func (NopDesktop) RequestPermission(context.Context) (Permission, error) {
	return PermissionDenied, nil
}

func (NopDesktop) Show(context.Context, DesktopNotice) (Handle, error) {
	return nil, ErrUnsupported
}

// NopClips refuses to play anything.
type NopClips struct{}

func (NopClips) Play(context.Context, string) error { return ErrUnsupported }

// NoTone is a factory for hosts without tone synthesis.
func NoTone() (ToneContext, error) { return nil, ErrUnsupported }

// HandleFunc adapts a function to Handle.
type HandleFunc func() error

func (f HandleFunc) Close() error {
	if f == nil {
		return nil
	}
	return f()
}
