package playlists

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"mixtape/internal/library"
	"mixtape/internal/media"
)

// Store captures the library operations needed by playlist workflows.
type Store interface {
	ListPlaylists(ctx context.Context, ownerID string) ([]library.Playlist, error)
	GetPlaylist(ctx context.Context, ownerID, playlistID string) (library.Playlist, error)
	CreatePlaylist(ctx context.Context, ownerID, name string) (library.Playlist, error)
	DeletePlaylist(ctx context.Context, ownerID, playlistID string) error
	AddRemoteItem(ctx context.Context, ownerID, playlistID string, item library.RemoteItem) (library.Playlist, error)
	AddUploadedItem(ctx context.Context, ownerID, playlistID, locator, title string) (library.Playlist, error)
	RemoveItem(ctx context.Context, ownerID, playlistID, itemID string) (library.Playlist, error)
	RateItem(ctx context.Context, ownerID, playlistID, itemID string, rating int) (library.Playlist, error)
}

// Intake stores uploaded media before it is attached to a playlist.
type Intake interface {
	Store(ctx context.Context, r io.Reader, filename, contentType string) (media.Upload, error)
	Remove(locator string) error
}

// Upload is an audio file received from a client.
type Upload struct {
	Body        io.Reader
	Filename    string
	ContentType string
}

// Service coordinates playlist-related operations.
type Service interface {
	List(ctx context.Context, ownerID string) ([]library.Playlist, error)
	Get(ctx context.Context, ownerID, playlistID string) (library.Playlist, error)
	Items(ctx context.Context, ownerID, playlistID, query, sort string) ([]library.Item, error)
	Create(ctx context.Context, ownerID, name string) (library.Playlist, error)
	Delete(ctx context.Context, ownerID, playlistID string) error
	AddRemote(ctx context.Context, ownerID, playlistID string, item library.RemoteItem) (library.Playlist, error)
	AddUpload(ctx context.Context, ownerID, playlistID string, upload Upload) (library.Playlist, error)
	RemoveItem(ctx context.Context, ownerID, playlistID, itemID string) (library.Playlist, error)
	Rate(ctx context.Context, ownerID, playlistID, itemID string, rating int) (library.Playlist, error)
}

type service struct {
	store  Store
	intake Intake
	log    zerolog.Logger
}

// New constructs a Service backed by the provided Store and media Intake.
func New(store Store, intake Intake, logger zerolog.Logger) Service {
	return &service{store: store, intake: intake, log: logger}
}

func (s *service) List(ctx context.Context, ownerID string) ([]library.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPlaylists(ctx, ownerID)
}

func (s *service) Get(ctx context.Context, ownerID, playlistID string) (library.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return library.Playlist{}, err
	}
	return s.store.GetPlaylist(ctx, ownerID, playlistID)
}

func (s *service) Items(ctx context.Context, ownerID, playlistID, query, sort string) ([]library.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mode, err := library.ParseSortMode(sort)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetPlaylist(ctx, ownerID, playlistID)
	if err != nil {
		return nil, err
	}
	return library.FilterAndSort(p, query, mode), nil
}

func (s *service) Create(ctx context.Context, ownerID, name string) (library.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return library.Playlist{}, err
	}
	return s.store.CreatePlaylist(ctx, ownerID, name)
}

func (s *service) Delete(ctx context.Context, ownerID, playlistID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeletePlaylist(ctx, ownerID, playlistID)
}

func (s *service) AddRemote(ctx context.Context, ownerID, playlistID string, item library.RemoteItem) (library.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return library.Playlist{}, err
	}
	return s.store.AddRemoteItem(ctx, ownerID, playlistID, item)
}

// AddUpload stores the file first and only then enters the store, so the
// library lock is never held while bytes are copied. The file is removed
// again when it cannot be attached.
func (s *service) AddUpload(ctx context.Context, ownerID, playlistID string, upload Upload) (library.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return library.Playlist{}, err
	}
	if _, err := s.store.GetPlaylist(ctx, ownerID, playlistID); err != nil {
		return library.Playlist{}, err
	}

	stored, err := s.intake.Store(ctx, upload.Body, upload.Filename, upload.ContentType)
	if err != nil {
		return library.Playlist{}, err
	}

	title := strings.TrimSpace(stored.Title)
	if title == "" {
		title = stored.Filename
	}

	p, err := s.store.AddUploadedItem(ctx, ownerID, playlistID, stored.Locator, title)
	if err != nil {
		if rmErr := s.intake.Remove(stored.Locator); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("locator", stored.Locator).Msg("discard unattached upload")
		}
		return library.Playlist{}, err
	}

	s.log.Info().
		Str("playlist_id", playlistID).
		Str("locator", stored.Locator).
		Int64("bytes", stored.Size).
		Msg("upload attached")
	return p, nil
}

func (s *service) RemoveItem(ctx context.Context, ownerID, playlistID, itemID string) (library.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return library.Playlist{}, err
	}
	return s.store.RemoveItem(ctx, ownerID, playlistID, itemID)
}

func (s *service) Rate(ctx context.Context, ownerID, playlistID, itemID string, rating int) (library.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return library.Playlist{}, err
	}
	return s.store.RateItem(ctx, ownerID, playlistID, itemID, rating)
}
