package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"mixtape/internal/library"
	"mixtape/internal/store"
)

const (
	demoUsername = "demo"
	demoPassword = "demo123"
	demoImage    = "https://api.dicebear.com/7.x/initials/svg?seed=Demo"
	demoPlaylist = "Welcome mix"
)

var demoVideos = []library.RemoteItem{
	{ItemID: "jfKfPfyJRdk", Title: "lofi hip hop radio", Thumbnail: "https://i.ytimg.com/vi/jfKfPfyJRdk/hqdefault.jpg"},
	{ItemID: "5qap5aO4i9A", Title: "Chillhop essentials", Thumbnail: "https://i.ytimg.com/vi/5qap5aO4i9A/hqdefault.jpg"},
	{ItemID: "DWcJFNfaw9c", Title: "Ambient study music", Thumbnail: "https://i.ytimg.com/vi/DWcJFNfaw9c/hqdefault.jpg"},
}

// bootstrapDemoData creates the demo account and its playlist. Running it
// again leaves existing data untouched.
func bootstrapDemoData(ctx context.Context, a *app) error {
	logger := zerolog.Ctx(ctx)

	if err := a.users.Signup(ctx, demoUsername, demoPassword, "Demo", demoImage); err != nil {
		if !errors.Is(err, store.ErrUserExists) {
			return fmt.Errorf("bootstrap demo user: %w", err)
		}
	}

	existing, err := a.playlists.List(ctx, demoUsername)
	if err != nil {
		return fmt.Errorf("list demo playlists: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	p, err := a.playlists.Create(ctx, demoUsername, demoPlaylist)
	if err != nil {
		return fmt.Errorf("bootstrap demo playlist: %w", err)
	}

	for _, video := range demoVideos {
		if _, err := a.playlists.AddRemote(ctx, demoUsername, p.ID, video); err != nil && !errors.Is(err, library.ErrConflict) {
			return fmt.Errorf("add demo video %q: %w", video.Title, err)
		}
	}

	logger.Info().Str("owner", demoUsername).Str("playlist", p.ID).Msg("seeded demo playlist")
	return nil
}
