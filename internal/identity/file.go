package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

// FileSource reads the session record from a JSON document written by the
// login flow. An absent or empty file means nobody is logged in.
type FileSource struct {
	Path string
}

var _ SessionSource = FileSource{}

// Active loads the session file.
func (f FileSource) Active(ctx context.Context) (*domain.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: read session file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, store.ErrNotFound
	}
	var record domain.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("identity: decode session file: %w", err)
	}
	return &record, nil
}

// Save writes record atomically. A nil record clears the session.
func (f FileSource) Save(record *domain.SessionRecord) error {
	if record == nil {
		err := os.Remove(f.Path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}
