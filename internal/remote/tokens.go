package remote

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// TokenStore persists pairing tokens keyed by device id.
type TokenStore interface {
	// Token returns the stored token for deviceID. ok is false when none is stored.
	Token(deviceID string) (token string, ok bool, err error)

	// SetToken stores token for deviceID, replacing any previous entry.
	SetToken(deviceID, token string) error

	Close() error
}

// OpenTokenStore opens a bbolt store for paths ending in ".db" and a flat
// token file otherwise.
func OpenTokenStore(path string) (TokenStore, error) {
	if strings.EqualFold(filepath.Ext(path), ".db") {
		return OpenBoltTokenStore(path)
	}
	return OpenFileTokenStore(path)
}

// FileTokenStore keeps one "deviceId:token" line per device. The file is
// opened once and rewritten in place on every change; it is not safe for
// concurrent writers in different processes.
type FileTokenStore struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// OpenFileTokenStore opens or creates the token file.
func OpenFileTokenStore(path string) (*FileTokenStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	return &FileTokenStore{f: f, path: path}, nil
}

// Path returns the token file location.
func (s *FileTokenStore) Path() string { return s.path }

func (s *FileTokenStore) Token(deviceID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.readLines()
	if err != nil {
		return "", false, err
	}
	for _, line := range lines {
		if id, token, ok := splitTokenLine(line); ok && id == deviceID {
			return token, true, nil
		}
	}
	return "", false, nil
}

func (s *FileTokenStore) SetToken(deviceID, token string) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if strings.ContainsAny(deviceID+token, "\r\n") {
		return fmt.Errorf("device id and token must not contain line breaks")
	}
	if strings.Contains(token, ":") {
		return fmt.Errorf("token must not contain a colon")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.readLines()
	if err != nil {
		return err
	}

	entry := deviceID + ":" + token
	replaced := false
	for i, line := range lines {
		if id, _, ok := splitTokenLine(line); ok && id == deviceID {
			lines[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, entry)
	}

	data := []byte(strings.Join(lines, "\n"))
	if err := s.f.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate token file: %w", err)
	}
	if _, err := s.f.WriteAt(data, 0); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return s.f.Sync()
}

func (s *FileTokenStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func (s *FileTokenStore) readLines() ([]string, error) {
	if s.f == nil {
		return nil, fmt.Errorf("token file is closed")
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	data, err := io.ReadAll(s.f)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// splitTokenLine splits at the last colon, so device ids may contain
// colons (e.g. UDNs) while tokens may not.
func splitTokenLine(line string) (id, token string, ok bool) {
	i := strings.LastIndex(line, ":")
	if i <= 0 {
		return "", "", false
	}
	return line[:i], line[i+1:], true
}

var bucketTokens = []byte("tokens")

// BoltTokenStore keeps tokens in a bbolt database.
type BoltTokenStore struct {
	db *bolt.DB
}

// OpenBoltTokenStore opens or creates a token database.
func OpenBoltTokenStore(path string) (*BoltTokenStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTokens)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &BoltTokenStore{db: db}, nil
}

func (s *BoltTokenStore) Token(deviceID string) (string, bool, error) {
	var (
		token string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketTokens)
		}
		if v := b.Get([]byte(deviceID)); v != nil {
			token, found = string(v), true
		}
		return nil
	})
	return token, found, err
}

func (s *BoltTokenStore) SetToken(deviceID, token string) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketTokens)
		}
		return b.Put([]byte(deviceID), []byte(token))
	})
}

func (s *BoltTokenStore) Close() error {
	return s.db.Close()
}
