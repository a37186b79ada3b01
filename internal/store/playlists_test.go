package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"mixtape/internal/library"
)

const legacyLibrary = `[
  {
    "id": "pl_1",
    "username": "alice",
    "name": "Road trip",
    "videos": [
      {"type": "yt", "videoId": "dQw4w9WgXcQ", "title": "Never", "thumb": "https://i.ytimg.com/1.jpg", "rating": 4},
      {"videoId": "9bZkp7q19f0", "title": "Untyped", "rating": 2.6},
      {"type": "mp3", "id": "audio_1", "title": "demo", "url": "/uploads/1-demo.mp3", "rating": 0}
    ]
  },
  {"id": "pl_2", "username": "bob", "name": "Empty", "videos": []}
]`

func TestPlaylistDocumentDecodesLegacyRecords(t *testing.T) {
	docs, err := NewFileDocuments(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := os.WriteFile(docs.Path(PlaylistsDocument), []byte(legacyLibrary), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	playlists, err := NewPlaylistDocument(docs).LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(playlists) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(playlists))
	}

	p := playlists[0]
	if p.OwnerID != "alice" || p.Name != "Road trip" || len(p.Items) != 3 {
		t.Fatalf("unexpected playlist: %#v", p)
	}

	want := []library.Item{
		{Kind: library.RemoteReference, ID: "dQw4w9WgXcQ", Title: "Never", Thumbnail: "https://i.ytimg.com/1.jpg", Rating: 4},
		{Kind: library.RemoteReference, ID: "9bZkp7q19f0", Title: "Untyped", Rating: 3},
		{Kind: library.UploadedMedia, ID: "audio_1", Title: "demo", Locator: "/uploads/1-demo.mp3", Rating: 0},
	}
	for i, item := range p.Items {
		if item != want[i] {
			t.Fatalf("item %d: expected %#v, got %#v", i, want[i], item)
		}
	}

	if playlists[1].Items == nil {
		t.Fatal("expected empty playlist to decode with non-nil items")
	}
}

func TestPlaylistDocumentRejectsUnknownItemType(t *testing.T) {
	docs, err := NewFileDocuments(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	body := `[{"id":"pl_1","username":"a","name":"n","videos":[{"type":"vimeo","id":"x","title":"t","rating":0}]}]`
	if err := os.WriteFile(docs.Path(PlaylistsDocument), []byte(body), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := NewPlaylistDocument(docs).LoadAll(context.Background()); err == nil {
		t.Fatal("expected decode error for unknown item type")
	}
}

func TestPlaylistDocumentWritesLegacyLayout(t *testing.T) {
	docs, err := NewFileDocuments(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	doc := NewPlaylistDocument(docs)

	err = doc.SaveAll(context.Background(), []library.Playlist{{
		ID:      "pl_1",
		OwnerID: "alice",
		Name:    "Mix",
		Items: []library.Item{
			{Kind: library.RemoteReference, ID: "v1", Title: "Clip", Thumbnail: "t.jpg", Rating: 2},
			{Kind: library.UploadedMedia, ID: "audio_1", Title: "song", Locator: "/uploads/1-song.mp3", Rating: 5},
		},
	}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := os.ReadFile(docs.Path(PlaylistsDocument))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := `[
  {
    "id": "pl_1",
    "username": "alice",
    "name": "Mix",
    "videos": [
      {
        "type": "yt",
        "videoId": "v1",
        "title": "Clip",
        "thumb": "t.jpg",
        "rating": 2
      },
      {
        "type": "mp3",
        "id": "audio_1",
        "title": "song",
        "url": "/uploads/1-song.mp3",
        "rating": 5
      }
    ]
  }
]`
	if string(got) != want {
		t.Fatalf("unexpected document:\n%s", got)
	}
}

func TestLibraryOverFileDocuments(t *testing.T) {
	docs, err := NewFileDocuments(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lib := library.New(NewPlaylistDocument(docs))
	ctx := context.Background()

	p, err := lib.CreatePlaylist(ctx, "alice", "Durable")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := lib.AddRemoteItem(ctx, "alice", p.ID, library.RemoteItem{ItemID: "v1", Title: "Clip"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	before, err := os.ReadFile(docs.Path(PlaylistsDocument))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if _, err := lib.CreatePlaylist(ctx, "alice", "durable"); !errors.Is(err, library.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := lib.RateItem(ctx, "alice", p.ID, "v1", 7); !errors.Is(err, library.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	after, err := os.ReadFile(docs.Path(PlaylistsDocument))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("failed mutations changed the persisted document")
	}

	// A second store over the same directory sees the committed state.
	reopened := library.New(NewPlaylistDocument(docs))
	got, err := reopened.GetPlaylist(ctx, "alice", p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].ID != "v1" {
		t.Fatalf("unexpected items after reopen: %#v", got.Items)
	}
}

func TestLibraryOverSQLite(t *testing.T) {
	ctx := context.Background()
	docs := openSQLiteDocs(t, t.TempDir()+"/mixtape.db")

	lib := library.New(NewPlaylistDocument(docs))
	p, err := lib.CreatePlaylist(ctx, "alice", "In SQLite")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := lib.AddUploadedItem(ctx, "alice", p.ID, "/uploads/1-a.mp3", "a"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	listed, err := lib.ListPlaylists(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || len(listed[0].Items) != 1 || listed[0].Items[0].Kind != library.UploadedMedia {
		t.Fatalf("unexpected library: %#v", listed)
	}
}
