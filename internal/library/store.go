package library

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Persistence loads and saves the whole library. SaveAll must be atomic: a
// reader sees either the previous or the new state, never a mix. LoadAll must
// return records the caller is free to modify.
type Persistence interface {
	LoadAll(ctx context.Context) ([]Playlist, error)
	SaveAll(ctx context.Context, playlists []Playlist) error
}

// Locker is implemented by persistence backends shared between processes.
// The store takes the lock for the duration of each read-modify-write cycle.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// Store owns every playlist and serialises all mutations.
type Store struct {
	persist Persistence
	log     zerolog.Logger
	newID   func() string

	mu sync.Mutex
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the logger used for commit and failure events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.log = logger
	}
}

// WithIDGenerator replaces the uuid source used for playlist and item ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// New builds a Store over the given persistence adapter.
func New(persist Persistence, opts ...Option) *Store {
	s := &Store{
		persist: persist,
		log:     zerolog.Nop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPlaylists returns the owner's playlists in persisted order.
func (s *Store) ListPlaylists(ctx context.Context, ownerID string) ([]Playlist, error) {
	const op = "list playlists"
	if err := requireOwner(op, ownerID); err != nil {
		return nil, err
	}

	all, err := s.persist.LoadAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("load library")
		return nil, storageError(op, "load", err)
	}

	owned := make([]Playlist, 0)
	for _, p := range all {
		if p.OwnerID == ownerID {
			owned = append(owned, p.Clone())
		}
	}
	return owned, nil
}

// GetPlaylist returns a single playlist owned by ownerID.
func (s *Store) GetPlaylist(ctx context.Context, ownerID, playlistID string) (Playlist, error) {
	const op = "get playlist"
	if err := requireOwner(op, ownerID); err != nil {
		return Playlist{}, err
	}

	all, err := s.persist.LoadAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("load library")
		return Playlist{}, storageError(op, "load", err)
	}

	for _, p := range all {
		if p.ID == playlistID && p.OwnerID == ownerID {
			return p.Clone(), nil
		}
	}
	return Playlist{}, notFoundError(op, "playlist not found")
}

// CreatePlaylist adds an empty playlist. Names are unique per owner, ignoring case.
func (s *Store) CreatePlaylist(ctx context.Context, ownerID, name string) (Playlist, error) {
	const op = "create playlist"
	if err := requireOwner(op, ownerID); err != nil {
		return Playlist{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Playlist{}, validationError(op, "playlist name is required")
	}

	var created Playlist
	err := s.mutate(ctx, op, func(lib *snapshot) error {
		for _, p := range lib.playlists {
			if p.OwnerID == ownerID && sameName(p.Name, name) {
				return conflictError(op, "a playlist named %q already exists", p.Name)
			}
		}
		created = Playlist{
			ID:      "pl_" + s.newID(),
			OwnerID: ownerID,
			Name:    name,
			Items:   []Item{},
		}
		lib.playlists = append(lib.playlists, created)
		return nil
	})
	if err != nil {
		return Playlist{}, err
	}
	return created.Clone(), nil
}

// DeletePlaylist removes a playlist together with its items.
func (s *Store) DeletePlaylist(ctx context.Context, ownerID, playlistID string) error {
	const op = "delete playlist"
	if err := requireOwner(op, ownerID); err != nil {
		return err
	}

	return s.mutate(ctx, op, func(lib *snapshot) error {
		idx := lib.find(ownerID, playlistID)
		if idx < 0 {
			return notFoundError(op, "playlist not found")
		}
		lib.playlists = append(lib.playlists[:idx], lib.playlists[idx+1:]...)
		return nil
	})
}

// AddRemoteItem appends a remote reference with a zero rating.
func (s *Store) AddRemoteItem(ctx context.Context, ownerID, playlistID string, in RemoteItem) (Playlist, error) {
	const op = "add remote item"
	if err := requireOwner(op, ownerID); err != nil {
		return Playlist{}, err
	}
	in.ItemID = strings.TrimSpace(in.ItemID)
	in.Title = strings.TrimSpace(in.Title)
	if in.ItemID == "" || in.Title == "" {
		return Playlist{}, validationError(op, "item id and title are required")
	}

	return s.mutatePlaylist(ctx, op, ownerID, playlistID, func(p *Playlist) error {
		if idx := p.indexOf(in.ItemID); idx >= 0 {
			if p.Items[idx].Kind == RemoteReference {
				return conflictError(op, "item already in playlist")
			}
			return conflictError(op, "item id %q is already used in this playlist", in.ItemID)
		}
		p.Items = append(p.Items, Item{
			Kind:      RemoteReference,
			ID:        in.ItemID,
			Title:     in.Title,
			Thumbnail: in.Thumbnail,
			Rating:    MinRating,
		})
		return nil
	})
}

// AddUploadedItem appends an uploaded media item under a freshly generated id.
// The binary behind locator must already be stored.
func (s *Store) AddUploadedItem(ctx context.Context, ownerID, playlistID, locator, title string) (Playlist, error) {
	const op = "add uploaded item"
	if err := requireOwner(op, ownerID); err != nil {
		return Playlist{}, err
	}
	if strings.TrimSpace(locator) == "" {
		return Playlist{}, validationError(op, "media locator is required")
	}

	return s.mutatePlaylist(ctx, op, ownerID, playlistID, func(p *Playlist) error {
		p.Items = append(p.Items, Item{
			Kind:    UploadedMedia,
			ID:      "audio_" + s.newID(),
			Title:   title,
			Locator: locator,
			Rating:  MinRating,
		})
		return nil
	})
}

// RemoveItem drops an item from a playlist. Stored media is left untouched.
func (s *Store) RemoveItem(ctx context.Context, ownerID, playlistID, itemID string) (Playlist, error) {
	const op = "remove item"
	if err := requireOwner(op, ownerID); err != nil {
		return Playlist{}, err
	}

	return s.mutatePlaylist(ctx, op, ownerID, playlistID, func(p *Playlist) error {
		idx := p.indexOf(itemID)
		if idx < 0 {
			return notFoundError(op, "item not found")
		}
		p.Items = append(p.Items[:idx], p.Items[idx+1:]...)
		return nil
	})
}

// RateItem sets an item's rating. Setting the current value again is a no-op write.
func (s *Store) RateItem(ctx context.Context, ownerID, playlistID, itemID string, rating int) (Playlist, error) {
	const op = "rate item"
	if err := requireOwner(op, ownerID); err != nil {
		return Playlist{}, err
	}
	if rating < MinRating || rating > MaxRating {
		return Playlist{}, validationError(op, "rating must be between %d and %d", MinRating, MaxRating)
	}

	return s.mutatePlaylist(ctx, op, ownerID, playlistID, func(p *Playlist) error {
		idx := p.indexOf(itemID)
		if idx < 0 {
			return notFoundError(op, "item not found")
		}
		p.Items[idx].Rating = rating
		return nil
	})
}

func requireOwner(op, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return validationError(op, "owner is required")
	}
	return nil
}
