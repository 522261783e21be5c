package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrKeyRequired        = errors.New("key is required")
)

// Well-known store keys. Each key maps to one JSON document on disk.
const (
	KeyFavorites = "favorites"
	KeyProgress  = "progress"
	KeySession   = "session"
)

// Change describes a single store write, delivered to subscribers so
// in-process listeners observe local writes the same way external watchers
// observe writes from other processes.
type Change struct {
	Key string
	Raw []byte // the new JSON document
}

// Store is the device-local key-value state store. Each key is persisted as
// its own JSON file inside the storage directory. Reads never fail on
// malformed content; callers always get a usable zero value back.
type Store struct {
	mu   sync.RWMutex
	fs   afero.Fs
	dir  string
	subs map[int]chan Change
	next int
}

// NewStore creates a store rooted at the provided directory on fs.
func NewStore(fs afero.Fs, storageDir string) (*Store, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := fs.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	return &Store{
		fs:   fs,
		dir:  storageDir,
		subs: make(map[int]chan Change),
	}, nil
}

// Dir returns the storage directory the store is rooted at.
func (s *Store) Dir() string {
	return s.dir
}

// Read decodes the document stored under key into dest. A missing file,
// empty file, or malformed JSON leaves dest at its zero value and returns
// nil: stored state is best-effort and must never block the caller.
func (s *Store) Read(key string, dest any) error {
	if strings.TrimSpace(key) == "" {
		return ErrKeyRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.fs.Open(s.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open state %s: %w", key, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read state %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("[localstore] discarding malformed %s document: %v", key, err)
		return nil
	}

	return nil
}

// Write persists value under key and broadcasts the change to subscribers.
// The write is atomic: encode to a temp file, fsync, rename over the old
// document.
func (s *Store) Write(key string, value any) error {
	if strings.TrimSpace(key) == "" {
		return ErrKeyRequired
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state %s: %w", key, err)
	}

	s.mu.Lock()
	if err := s.writeLocked(key, data); err != nil {
		s.mu.Unlock()
		return err
	}
	subs := make([]chan Change, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	s.broadcast(subs, Change{Key: key, Raw: data})
	return nil
}

// Subscribe registers a listener for store changes. The returned cancel
// function removes the subscription and closes the channel.
func (s *Store) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan Change, 16)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

func (s *Store) broadcast(subs []chan Change, change Change) {
	for _, ch := range subs {
		select {
		case ch <- change:
		default:
			// Slow subscribers drop events; consumers re-read the
			// store on the next change they do receive.
		}
	}
}

func (s *Store) pathFor(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) writeLocked(key string, data []byte) error {
	path := s.pathFor(key)
	tmp := path + ".tmp"

	file, err := s.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create state temp file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write state %s: %w", key, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("sync state %s: %w", key, err)
	}

	if err := file.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("close state temp file: %w", err)
	}

	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state %s: %w", key, err)
	}

	return nil
}
