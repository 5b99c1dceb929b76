package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-live-notifications/internal/audio"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/platform"
)

// DefaultPlayer plays PCM WAV files on most Linux desktops.
const DefaultPlayer = "paplay"

// Runner executes a host command.
type Runner func(ctx context.Context, name string, args ...string) error

// LookPath resolves a binary on the host.
type LookPath func(file string) (string, error)

// Exec bundles the command hooks shared by the host adapters.
type Exec struct {
	Run    Runner
	Lookup LookPath
}

func (e Exec) withDefaults() Exec {
	if e.Run == nil {
		e.Run = func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		}
	}
	if e.Lookup == nil {
		e.Lookup = exec.LookPath
	}
	return e
}

// NotifySend shows desktop notices through the notify-send binary.
// Permission stays default until RequestPermission checks that the binary
// exists.
type NotifySend struct {
	exec       Exec
	appName    string
	expireTime time.Duration

	mu     sync.RWMutex
	binary string
	perm   platform.Permission
}

var _ platform.DesktopNotifier = (*NotifySend)(nil)

// NewNotifySend returns a desktop notifier.
func NewNotifySend(appName string, expire time.Duration, e Exec) *NotifySend {
	if appName == "" {
		appName = "live-notifications"
	}
	return &NotifySend{
		exec:       e.withDefaults(),
		appName:    appName,
		expireTime: expire,
		perm:       platform.PermissionDefault,
	}
}

func (n *NotifySend) Permission() platform.Permission {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.perm
}

func (n *NotifySend) RequestPermission(context.Context) (platform.Permission, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.perm != platform.PermissionDefault {
		return n.perm, nil
	}
	path, err := n.exec.Lookup("notify-send")
	if err != nil {
		n.perm = platform.PermissionDenied
		return n.perm, nil
	}
	n.binary = path
	n.perm = platform.PermissionGranted
	return n.perm, nil
}

func (n *NotifySend) Show(ctx context.Context, notice platform.DesktopNotice) (platform.Handle, error) {
	n.mu.RLock()
	perm, binary := n.perm, n.binary
	n.mu.RUnlock()
	if perm != platform.PermissionGranted {
		return nil, platform.ErrUnsupported
	}
	args := []string{"--app-name", n.appName}
	if n.expireTime > 0 {
		args = append(args, "--expire-time", strconv.FormatInt(n.expireTime.Milliseconds(), 10))
	}
	if notice.Tag != "" {
		args = append(args, "--hint", "string:x-canonical-private-synchronous:"+notice.Tag)
	}
	args = append(args, notice.Title)
	if notice.Body != "" {
		args = append(args, notice.Body)
	}
	if err := n.exec.Run(ctx, binary, args...); err != nil {
		return nil, fmt.Errorf("platform: notify-send: %w", err)
	}
	return platform.HandleFunc(nil), nil
}

// CommandClips plays audio files with an external player command.
type CommandClips struct {
	exec    Exec
	command []string
}

var _ platform.ClipPlayer = (*CommandClips)(nil)

// NewCommandClips parses command ("paplay", "aplay -q") into a clip player.
func NewCommandClips(command string, e Exec) *CommandClips {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = []string{DefaultPlayer}
	}
	return &CommandClips{exec: e.withDefaults(), command: fields}
}

func (c *CommandClips) Play(ctx context.Context, path string) error {
	if _, err := c.exec.Lookup(c.command[0]); err != nil {
		return platform.ErrUnsupported
	}
	if _, err := os.Stat(path); err != nil {
		return platform.ErrUnsupported
	}
	args := append(append([]string(nil), c.command[1:]...), path)
	return c.exec.Run(ctx, c.command[0], args...)
}

// CommandTone renders tone samples to a temporary WAV file and hands it to a
// player command.
type CommandTone struct {
	clips   *CommandClips
	log     logger.Logger
	tempDir string

	mu      sync.Mutex
	resumed bool
}

var _ platform.ToneContext = (*CommandTone)(nil)

// CommandToneFactory builds tone contexts backed by the player command. It
// fails when the player is not installed so the device lands in the failed
// state.
func CommandToneFactory(command string, e Exec, l logger.Logger) platform.ToneContextFactory {
	return func() (platform.ToneContext, error) {
		clips := NewCommandClips(command, e)
		if _, err := clips.exec.Lookup(clips.command[0]); err != nil {
			return nil, fmt.Errorf("platform: tone player %q: %w", clips.command[0], platform.ErrUnsupported)
		}
		return &CommandTone{clips: clips, log: logger.OrNop(l), tempDir: os.TempDir()}, nil
	}
}

func (t *CommandTone) Resume(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resumed = true
	return nil
}

func (t *CommandTone) Play(ctx context.Context, samples []float64, sampleRate int) error {
	t.mu.Lock()
	resumed := t.resumed
	t.mu.Unlock()
	if !resumed {
		return errors.New("platform: tone context suspended")
	}
	file, err := os.CreateTemp(t.tempDir, "cue-*.wav")
	if err != nil {
		return err
	}
	path := file.Name()
	defer os.Remove(path)

	if _, err := file.Write(audio.EncodeWAV(samples, sampleRate)); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	t.log.Debug("platform: playing tone", logger.F("path", path), logger.F("samples", len(samples)))
	return t.clips.Play(ctx, path)
}

func (t *CommandTone) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resumed = false
	return nil
}
