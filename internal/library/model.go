package library

import (
	"strings"

	"golang.org/x/text/cases"
)

// ItemKind discriminates the two kinds of playlist entries.
type ItemKind string

const (
	// RemoteReference points at a clip hosted by an external video service.
	RemoteReference ItemKind = "remote-reference"
	// UploadedMedia is an audio file accepted by the media intake.
	UploadedMedia ItemKind = "uploaded-media"
)

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool {
	return k == RemoteReference || k == UploadedMedia
}

// Rating bounds, inclusive.
const (
	MinRating = 0
	MaxRating = 5
)

// Item is one entry of a playlist. Locator is only set for uploaded media.
type Item struct {
	Kind      ItemKind `json:"kind"`
	ID        string   `json:"itemId"`
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Locator   string   `json:"locator,omitempty"`
	Rating    int      `json:"rating"`
}

// RemoteItem is the caller-supplied description of an externally hosted clip.
type RemoteItem struct {
	ItemID    string
	Title     string
	Thumbnail string
}

// Playlist is a named, owner-scoped, ordered collection of items.
type Playlist struct {
	ID      string `json:"playlistId"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
	Items   []Item `json:"items"`
}

// Clone returns a deep copy of p. Items is never nil on the copy.
func (p Playlist) Clone() Playlist {
	items := make([]Item, len(p.Items))
	copy(items, p.Items)
	p.Items = items
	return p
}

func (p Playlist) indexOf(itemID string) int {
	for i, item := range p.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// fold maps s to its case-folded form for case-insensitive comparison.
// A Caser keeps state, so a fresh one is used per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

func sameName(a, b string) bool {
	return fold(strings.TrimSpace(a)) == fold(strings.TrimSpace(b))
}
