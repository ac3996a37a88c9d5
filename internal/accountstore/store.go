// Package accountstore persists platform accounts in a small JSON file.
package accountstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/osse101/DropTracker_Go/internal/domain"
	"github.com/osse101/DropTracker_Go/internal/logger"
	"github.com/osse101/DropTracker_Go/internal/validation"
)

const (
	filePermissions = 0o600
	dirPermissions  = 0o700

	LogMsgStoreLoaded    = "Account store loaded"
	LogMsgAccountSaved   = "Account saved"
	LogMsgAccountRemoved = "Account removed"
)

//go:embed accounts.schema.json
var schemaJSON []byte

var fileSchema = validation.MustCompile("accounts.schema.json", schemaJSON)

// ErrAccountNotFound is returned by Remove for an unknown username.
var ErrAccountNotFound = errors.New("account not found")

type fileFormat struct {
	Accounts []*domain.Account `json:"accounts"`
}

// Store is a file-backed account list keyed by username. Every mutation is
// written through to disk before it returns.
type Store struct {
	path string

	mu       sync.Mutex
	accounts []*domain.Account
}

// Open loads the store at path. A missing file is an empty store.
func Open(ctx context.Context, path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read account store: %w", err)
	}

	if err := fileSchema.Validate(data); err != nil {
		return nil, fmt.Errorf("account store %s %w", path, err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode account store %s: %w", path, err)
	}
	s.accounts = f.Accounts
	logger.FromContext(ctx).Debug(LogMsgStoreLoaded, "path", path, "accounts", len(s.accounts))
	return s, nil
}

// Accounts returns copies of the stored accounts in file order.
func (s *Store) Accounts() []*domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		c := *acc
		out = append(out, &c)
	}
	return out
}

// Get returns a copy of the account for username.
func (s *Store) Get(username string) (*domain.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(username); i >= 0 {
		c := *s.accounts[i]
		return &c, true
	}
	return nil, false
}

// SaveAccount inserts acc or replaces the entry with the same username.
func (s *Store) SaveAccount(ctx context.Context, acc *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *acc
	if i := s.indexOf(acc.Username); i >= 0 {
		s.accounts[i] = &c
	} else {
		s.accounts = append(s.accounts, &c)
	}
	if err := s.flush(); err != nil {
		return err
	}
	logger.FromContext(ctx).Info(LogMsgAccountSaved, "username", acc.Username)
	return nil
}

// Remove deletes the account for username.
func (s *Store) Remove(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(username)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, username)
	}
	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	if err := s.flush(); err != nil {
		return err
	}
	logger.FromContext(ctx).Info(LogMsgAccountRemoved, "username", username)
	return nil
}

func (s *Store) indexOf(username string) int {
	for i, acc := range s.accounts {
		if acc.Username == username {
			return i
		}
	}
	return -1
}

// flush replaces the file atomically through a temp file and rename.
func (s *Store) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
		return fmt.Errorf("create account store directory: %w", err)
	}

	accounts := s.accounts
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	data, err := json.MarshalIndent(fileFormat{Accounts: accounts}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode account store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, filePermissions); err != nil {
		return fmt.Errorf("write account store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace account store: %w", err)
	}
	return nil
}
