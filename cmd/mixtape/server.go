package main

import (
	"net/http"

	"github.com/rs/zerolog"

	"mixtape/internal/app/playlists"
	"mixtape/internal/app/users"
	"mixtape/internal/auth"
	"mixtape/internal/config"
	"mixtape/internal/http/middleware"
	"mixtape/internal/httpapi"
	"mixtape/internal/library"
	"mixtape/internal/media"
	"mixtape/internal/store"
)

type app struct {
	users     users.Service
	playlists playlists.Service
	handler   http.Handler
}

func newApp(cfg *config.Config, docs store.Documents, logger zerolog.Logger) (*app, error) {
	lib := library.New(
		store.NewPlaylistDocument(docs),
		library.WithLogger(logger.With().Str("component", "library").Logger()),
	)

	intake, err := media.NewDiskIntake(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)

	userSvc := users.New(store.NewUsers(docs), tokens)
	playlistSvc := playlists.New(lib, intake, logger.With().Str("component", "playlists").Logger())

	api := httpapi.New(userSvc, playlistSvc, tokens, httpapi.Options{
		UploadsDir:     intake.Dir(),
		MaxUploadBytes: intake.MaxBytes(),
		SecureCookies:  cfg.Security.SecureCookies,
	})

	var handler http.Handler = api.Routes()
	handler = middleware.CORS(cfg.CORS.AllowedOrigins)(handler)
	handler = middleware.Recovery()(handler)
	handler = middleware.RequestLogging(logger)(handler)

	return &app{users: userSvc, playlists: playlistSvc, handler: handler}, nil
}
