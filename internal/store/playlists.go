package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"mixtape/internal/library"
)

// PlaylistsDocument is the document name holding the whole library.
const PlaylistsDocument = "playlists"

const (
	recordTypeRemote = "yt"
	recordTypeUpload = "mp3"
)

// playlistRecord is the persisted shape of a playlist. Field names follow the
// data/playlists.json layout so existing files load unchanged.
type playlistRecord struct {
	ID       string       `json:"id"`
	Username string       `json:"username"`
	Name     string       `json:"name"`
	Videos   []itemRecord `json:"videos"`
}

type itemRecord struct {
	Type    string  `json:"type"`
	VideoID string  `json:"videoId,omitempty"`
	ID      string  `json:"id,omitempty"`
	Title   string  `json:"title"`
	Thumb   string  `json:"thumb,omitempty"`
	URL     string  `json:"url,omitempty"`
	Rating  float64 `json:"rating"`
}

// PlaylistDocument adapts a Documents backend to library.Persistence.
type PlaylistDocument struct {
	docs Documents
	name string
}

// NewPlaylistDocument stores the library in the "playlists" document of docs.
func NewPlaylistDocument(docs Documents) *PlaylistDocument {
	return &PlaylistDocument{docs: docs, name: PlaylistsDocument}
}

// LoadAll decodes the stored library. A missing document is an empty library.
func (d *PlaylistDocument) LoadAll(ctx context.Context) ([]library.Playlist, error) {
	body, err := d.docs.Read(ctx, d.name)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var records []playlistRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.name, err)
	}

	playlists := make([]library.Playlist, 0, len(records))
	for _, rec := range records {
		p, err := rec.toPlaylist()
		if err != nil {
			return nil, fmt.Errorf("decode playlist %s: %w", rec.ID, err)
		}
		playlists = append(playlists, p)
	}
	return playlists, nil
}

// SaveAll encodes and replaces the stored library in one write.
func (d *PlaylistDocument) SaveAll(ctx context.Context, playlists []library.Playlist) error {
	records := make([]playlistRecord, 0, len(playlists))
	for _, p := range playlists {
		records = append(records, fromPlaylist(p))
	}

	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.name, err)
	}
	return d.docs.Write(ctx, d.name, body)
}

// Lock implements library.Locker using the backend's document lock, when it has one.
func (d *PlaylistDocument) Lock(ctx context.Context) (func() error, error) {
	return lockDocument(ctx, d.docs, d.name)
}

func (r playlistRecord) toPlaylist() (library.Playlist, error) {
	items := make([]library.Item, 0, len(r.Videos))
	for _, v := range r.Videos {
		item, err := v.toItem()
		if err != nil {
			return library.Playlist{}, err
		}
		items = append(items, item)
	}
	return library.Playlist{
		ID:      r.ID,
		OwnerID: r.Username,
		Name:    r.Name,
		Items:   items,
	}, nil
}

// toItem resolves the item kind once. Records written before the type field
// existed are recognised by their videoId or url.
func (r itemRecord) toItem() (library.Item, error) {
	kind := r.Type
	if kind == "" {
		switch {
		case r.VideoID != "":
			kind = recordTypeRemote
		case r.URL != "":
			kind = recordTypeUpload
		}
	}

	rating := clampRating(r.Rating)
	switch kind {
	case recordTypeRemote:
		return library.Item{
			Kind:      library.RemoteReference,
			ID:        r.VideoID,
			Title:     r.Title,
			Thumbnail: r.Thumb,
			Rating:    rating,
		}, nil
	case recordTypeUpload:
		return library.Item{
			Kind:    library.UploadedMedia,
			ID:      r.ID,
			Title:   r.Title,
			Locator: r.URL,
			Rating:  rating,
		}, nil
	default:
		return library.Item{}, fmt.Errorf("unknown item type %q", r.Type)
	}
}

func fromPlaylist(p library.Playlist) playlistRecord {
	videos := make([]itemRecord, 0, len(p.Items))
	for _, item := range p.Items {
		rec := itemRecord{Title: item.Title, Rating: float64(item.Rating)}
		switch item.Kind {
		case library.UploadedMedia:
			rec.Type = recordTypeUpload
			rec.ID = item.ID
			rec.URL = item.Locator
		default:
			rec.Type = recordTypeRemote
			rec.VideoID = item.ID
			rec.Thumb = item.Thumbnail
		}
		videos = append(videos, rec)
	}
	return playlistRecord{
		ID:       p.ID,
		Username: p.OwnerID,
		Name:     p.Name,
		Videos:   videos,
	}
}

// clampRating maps legacy fractional or out-of-range ratings into bounds.
func clampRating(v float64) int {
	r := int(math.Round(v))
	if r < library.MinRating {
		return library.MinRating
	}
	if r > library.MaxRating {
		return library.MaxRating
	}
	return r
}
