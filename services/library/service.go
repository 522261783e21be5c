package library

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"watchsync/models"
	"watchsync/services/localstore"
)

var (
	ErrIDRequired        = errors.New("id is required")
	ErrMediaTypeRequired = errors.New("media type is required")
	ErrMediaTypeInvalid  = errors.New("media type must be movie or tv")
)

// Service implements the user-triggered mutators over the local state store:
// toggling favorites and recording playback progress. Every mutation is a
// read-modify-write of the whole document, so a service-level mutex holds
// across the load and the save; the store's own lock only covers a single
// file operation.
type Service struct {
	mu    sync.RWMutex
	store *localstore.Store
}

// NewService creates a library service over the provided store.
func NewService(store *localstore.Store) *Service {
	return &Service{store: store}
}

// Favorites returns the current favorites list, most recently usable order
// is whatever the document holds; malformed entries are dropped.
func (s *Service) Favorites() []models.FavoriteItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favoritesLocked()
}

func (s *Service) favoritesLocked() []models.FavoriteItem {
	var items []models.FavoriteItem
	_ = s.store.Read(localstore.KeyFavorites, &items)

	clean := items[:0]
	for _, item := range items {
		if item.Valid() {
			clean = append(clean, item)
		}
	}
	if clean == nil {
		clean = []models.FavoriteItem{}
	}
	return clean
}

// ToggleFavorite adds the item when absent and removes it when present,
// replacing the whole favorites document. Returns true when the item is a
// favorite after the call.
func (s *Service) ToggleFavorite(item models.FavoriteItem) (bool, error) {
	if item.ID <= 0 {
		return false, ErrIDRequired
	}
	mediaType := strings.ToLower(strings.TrimSpace(item.MediaType))
	if mediaType == "" {
		return false, ErrMediaTypeRequired
	}
	if !models.ValidMediaType(mediaType) {
		return false, ErrMediaTypeInvalid
	}
	item.MediaType = mediaType

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.favoritesLocked()

	filtered := make([]models.FavoriteItem, 0, len(items)+1)
	removed := false
	for _, existing := range items {
		if existing.Key() == item.Key() {
			removed = true
			continue
		}
		filtered = append(filtered, existing)
	}

	nowFavorite := !removed
	if nowFavorite {
		filtered = append(filtered, item)
	}

	if err := s.store.Write(localstore.KeyFavorites, filtered); err != nil {
		return false, err
	}
	return nowFavorite, nil
}

// RemoveFavorite deletes the favorite for (mediaType, id) in one step.
// Reports whether it was present.
func (s *Service) RemoveFavorite(mediaType string, id int64) (bool, error) {
	if id <= 0 {
		return false, ErrIDRequired
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return false, ErrMediaTypeRequired
	}
	if !models.ValidMediaType(mediaType) {
		return false, ErrMediaTypeInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.favoritesLocked()
	target := models.FavoriteItem{ID: id, MediaType: mediaType}

	filtered := make([]models.FavoriteItem, 0, len(items))
	removed := false
	for _, existing := range items {
		if existing.Key() == target.Key() {
			removed = true
			continue
		}
		filtered = append(filtered, existing)
	}
	if !removed {
		return false, nil
	}

	if err := s.store.Write(localstore.KeyFavorites, filtered); err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceFavorites overwrites the favorites document wholesale. Used by the
// sync layer when remote state wins.
func (s *Service) ReplaceFavorites(items []models.FavoriteItem) error {
	if items == nil {
		items = []models.FavoriteItem{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Write(localstore.KeyFavorites, items)
}

// Progress returns the current progress map keyed by composite key.
func (s *Service) Progress() map[string]models.ProgressRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progressLocked()
}

func (s *Service) progressLocked() map[string]models.ProgressRecord {
	var records map[string]models.ProgressRecord
	_ = s.store.Read(localstore.KeyProgress, &records)

	clean := make(map[string]models.ProgressRecord, len(records))
	for _, rec := range records {
		if !rec.Valid() {
			continue
		}
		if existing, ok := clean[rec.Key()]; ok && !rec.NewerThan(existing) {
			continue
		}
		clean[rec.Key()] = rec
	}
	return clean
}

// ContinueWatching returns progress records ordered by recency, newest
// first, for the resume shelf.
func (s *Service) ContinueWatching() []models.ProgressRecord {
	records := s.Progress()
	items := make([]models.ProgressRecord, 0, len(records))
	for _, rec := range records {
		items = append(items, rec)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].LastUpdated == items[j].LastUpdated {
			return items[i].Key() < items[j].Key()
		}
		return items[i].LastUpdated > items[j].LastUpdated
	})
	return items
}

// RecordProgress upserts the record for its composite key. A zero
// last_updated is stamped with the current time. Records older than what is
// already stored are ignored: greater last_updated wins.
func (s *Service) RecordProgress(rec models.ProgressRecord) (models.ProgressRecord, error) {
	if rec.ID <= 0 {
		return models.ProgressRecord{}, ErrIDRequired
	}
	mediaType := strings.ToLower(strings.TrimSpace(rec.MediaType))
	if mediaType == "" {
		return models.ProgressRecord{}, ErrMediaTypeRequired
	}
	if !models.ValidMediaType(mediaType) {
		return models.ProgressRecord{}, ErrMediaTypeInvalid
	}
	rec.MediaType = mediaType

	if rec.LastUpdated == 0 {
		rec.LastUpdated = time.Now().UnixMilli()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.progressLocked()
	if existing, ok := records[rec.Key()]; ok && !rec.NewerThan(existing) {
		return existing, nil
	}
	records[rec.Key()] = rec

	if err := s.store.Write(localstore.KeyProgress, records); err != nil {
		return models.ProgressRecord{}, err
	}
	return rec, nil
}

// DeleteProgress removes the record for the given composite key. Reports
// whether a record was present.
func (s *Service) DeleteProgress(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.progressLocked()
	if _, ok := records[key]; !ok {
		return false, nil
	}
	delete(records, key)
	if err := s.store.Write(localstore.KeyProgress, records); err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceProgress overwrites the progress document wholesale.
func (s *Service) ReplaceProgress(records map[string]models.ProgressRecord) error {
	if records == nil {
		records = map[string]models.ProgressRecord{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Write(localstore.KeyProgress, records)
}

// Snapshot captures favorites and progress together for a push or for
// seeding a new account.
func (s *Service) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Snapshot{
		Favorites: s.favoritesLocked(),
		Progress:  s.progressLocked(),
	}
}

// ApplySnapshot replaces both documents with the provided snapshot after
// sanitizing it. Remote blobs are not trusted as-is.
func (s *Service) ApplySnapshot(snapshot models.Snapshot) error {
	clean := snapshot.Sanitize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Write(localstore.KeyFavorites, clean.Favorites); err != nil {
		return err
	}
	return s.store.Write(localstore.KeyProgress, clean.Progress)
}

// SessionMarkers returns the persisted session mirror.
func (s *Service) SessionMarkers() models.SessionMarkers {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var markers models.SessionMarkers
	_ = s.store.Read(localstore.KeySession, &markers)
	return markers
}

// SetSessionMarkers records the signed-in session locally.
func (s *Service) SetSessionMarkers(email, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Write(localstore.KeySession, models.SessionMarkers{
		LoggedIn: true,
		Email:    email,
		UserID:   userID,
	})
}

// ClearSessionMarkers removes the session mirror. Favorites and progress are
// deliberately left untouched so the guest experience keeps the data.
func (s *Service) ClearSessionMarkers() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Write(localstore.KeySession, models.SessionMarkers{})
}
