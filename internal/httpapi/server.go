package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"mixtape/internal/app/playlists"
	"mixtape/internal/app/users"
	"mixtape/internal/auth"
	"mixtape/internal/library"
	"mixtape/internal/media"
	"mixtape/internal/store"
)

const sessionCookie = "mixtape_session"

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	Signup(ctx context.Context, username, password, firstName, image string) error
	Authenticate(ctx context.Context, username, password string) (users.Session, error)
	Profile(ctx context.Context, username string) (store.User, error)
}

// PlaylistService coordinates playlist-related operations.
type PlaylistService interface {
	List(ctx context.Context, ownerID string) ([]library.Playlist, error)
	Get(ctx context.Context, ownerID, playlistID string) (library.Playlist, error)
	Items(ctx context.Context, ownerID, playlistID, query, sort string) ([]library.Item, error)
	Create(ctx context.Context, ownerID, name string) (library.Playlist, error)
	Delete(ctx context.Context, ownerID, playlistID string) error
	AddRemote(ctx context.Context, ownerID, playlistID string, item library.RemoteItem) (library.Playlist, error)
	AddUpload(ctx context.Context, ownerID, playlistID string, upload playlists.Upload) (library.Playlist, error)
	RemoveItem(ctx context.Context, ownerID, playlistID, itemID string) (library.Playlist, error)
	Rate(ctx context.Context, ownerID, playlistID, itemID string, rating int) (library.Playlist, error)
}

// TokenVerifier resolves a session token to the owner it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Options tunes the media-related parts of the HTTP surface.
type Options struct {
	// UploadsDir is served under /uploads/ when set.
	UploadsDir string
	// MaxUploadBytes bounds multipart request bodies; zero disables the bound.
	MaxUploadBytes int64
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users     UserService
	playlists PlaylistService
	tokens    TokenVerifier
	opts      Options
}

// New configures a Server with the given services.
func New(users UserService, playlists PlaylistService, tokens TokenVerifier, opts Options) *Server {
	return &Server{
		users:     users,
		playlists: playlists,
		tokens:    tokens,
		opts:      opts,
	}
}

// Routes exposes the HTTP handlers. Every API route is served under /api/v1
// and under the legacy /api prefix.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	for _, prefix := range []string{"/api/v1", "/api"} {
		s.register(r.PathPrefix(prefix).Subrouter())
	}

	if s.opts.UploadsDir != "" {
		files := http.StripPrefix(media.URLPrefix, http.FileServer(http.Dir(s.opts.UploadsDir)))
		r.PathPrefix(media.URLPrefix).Handler(files).Methods(http.MethodGet, http.MethodHead)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return r
}

func (s *Server) register(api *mux.Router) {
	api.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	api.Handle("/me", s.authenticated(s.handleMe)).Methods(http.MethodGet)

	api.Handle("/playlists", s.authenticated(s.listPlaylists)).Methods(http.MethodGet)
	api.Handle("/playlists", s.authenticated(s.createPlaylist)).Methods(http.MethodPost)
	api.Handle("/playlists/{id}", s.authenticated(s.getPlaylist)).Methods(http.MethodGet)
	api.Handle("/playlists/{id}", s.authenticated(s.deletePlaylist)).Methods(http.MethodDelete)
	api.Handle("/playlists/{id}/items", s.authenticated(s.listItems)).Methods(http.MethodGet)
	api.Handle("/playlists/{id}/videos", s.authenticated(s.addRemoteItem)).Methods(http.MethodPost)
	api.Handle("/playlists/{id}/mp3", s.authenticated(s.uploadAudio)).Methods(http.MethodPost)
	api.Handle("/playlists/{id}/items/{itemId}", s.authenticated(s.removeItem)).Methods(http.MethodDelete)
	api.Handle("/playlists/{id}/items/{itemId}/rating", s.authenticated(s.rateItem)).Methods(http.MethodPut)
}

// authenticated resolves the session token from the Authorization header or
// the session cookie and stores the owner in the request context.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := parseBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "login required"})
			return
		}

		owner, err := s.tokens.Verify(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired session"})
			return
		}

		next(w, r.WithContext(auth.WithOwner(r.Context(), owner)))
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// writeError maps service errors onto status codes. Details of 5xx errors
// are logged and never returned to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError

	status := http.StatusInternalServerError
	msg := "internal server error"
	switch {
	case errors.Is(err, library.ErrValidation):
		status, msg = http.StatusBadRequest, library.Message(err)
	case errors.Is(err, library.ErrConflict):
		status, msg = http.StatusConflict, library.Message(err)
	case errors.Is(err, library.ErrNotFound):
		status, msg = http.StatusNotFound, library.Message(err)
	case errors.Is(err, library.ErrStorage):
		msg = library.Message(err)
	case errors.Is(err, media.ErrTooLarge):
		status, msg = http.StatusRequestEntityTooLarge, err.Error()
	case errors.As(err, &maxBytes):
		status, msg = http.StatusRequestEntityTooLarge, media.ErrTooLarge.Error()
	case errors.Is(err, media.ErrUnsupportedType), errors.Is(err, media.ErrEmptyUpload):
		status, msg = http.StatusBadRequest, err.Error()
	}

	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
