package checkpoint

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store loads and saves per-account checkpoints.
//
// Load never fails: missing or unreadable state yields a zero Checkpoint,
// which sends the account back through the cold-start search window. Save
// must be durable before it returns nil, and a failed Save must leave the
// previously stored checkpoint intact.
type Store interface {
	Load(account string) Checkpoint
	Save(account string, cp Checkpoint) error
}

// FileStore keeps one JSON record per account under a data directory.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger
}

// NewFileStore creates the data directory if needed and returns a store
// backed by it.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Load reads the checkpoint for account. Corrupt or missing records degrade
// to an empty checkpoint instead of an error.
func (s *FileStore) Load(account string) Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(account))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("checkpoint unreadable, starting over",
				"account", account, "error", err)
		}
		return Checkpoint{}
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.Warn("checkpoint corrupt, starting over",
			"account", account, "error", err)
		return Checkpoint{}
	}
	return cp
}

// Save writes the checkpoint for account atomically: the record is written
// to a temp file in the same directory and renamed over the old one, so a
// crash mid-write never leaves a half-written record behind.
func (s *FileStore) Save(account string, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dst := s.path(account)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}

	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) path(account string) string {
	return filepath.Join(s.dir, sanitize(account)+".json")
}

// sanitize maps an account name onto a safe file name.
func sanitize(name string) string {
	if name == "" {
		return "default"
	}
	out := make([]byte, 0, len(name))
	for _, b := range []byte(name) {
		if (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '-' || b == '_' {
			out = append(out, b)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
