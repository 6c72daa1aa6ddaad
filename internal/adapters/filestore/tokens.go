// Package filestore persists the CLI's token pair in a private JSON file.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFileName is the token file location relative to the user's home directory.
const DefaultFileName = ".sims/tokens.json"

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// Tokens is the persisted record. Nothing else is written to disk.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenFile is a file-backed session state for command-line use.
// A missing file reads as signed out.
type TokenFile struct {
	path string

	mu     sync.Mutex
	tokens Tokens
}

// DefaultPath resolves the token file path: the override when set, otherwise ~/.sims/tokens.json.
func DefaultPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// Open reads the token file at path.
func Open(path string) (*TokenFile, error) {
	if path == "" {
		return nil, errors.New("token file path is required")
	}
	f := &TokenFile{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.tokens); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	return f, nil
}

// Path returns the backing file path.
func (f *TokenFile) Path() string { return f.path }

func (f *TokenFile) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens.AccessToken
}

func (f *TokenFile) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens.RefreshToken
}

// Save replaces both tokens and writes the file.
func (f *TokenFile) Save(_ context.Context, t Tokens) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = t
	return f.writeLocked()
}

// SetAccessToken replaces the access token and keeps the refresh token.
func (f *TokenFile) SetAccessToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens.AccessToken = token
	return f.writeLocked()
}

// Clear forgets both tokens and removes the file.
func (f *TokenFile) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = Tokens{}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// writeLocked writes through a temp file in the same directory so a crash never leaves a partial file.
func (f *TokenFile) writeLocked() error {
	data, err := json.MarshalIndent(f.tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*.json")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(fileMode); err != nil {
		return errors.Join(fmt.Errorf("chmod temp token file: %w", err), tmp.Close(), os.Remove(tmpName))
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		return errors.Join(fmt.Errorf("write temp token file: %w", err), tmp.Close(), os.Remove(tmpName))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("close temp token file: %w", err), os.Remove(tmpName))
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return errors.Join(fmt.Errorf("replace token file: %w", err), os.Remove(tmpName))
	}
	return nil
}
