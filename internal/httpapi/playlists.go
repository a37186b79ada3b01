package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/gorilla/mux"

	"mixtape/internal/app/playlists"
	"mixtape/internal/auth"
	"mixtape/internal/library"
)

// uploadField is the multipart field carrying the audio file.
const uploadField = "mp3"

// multipartOverhead leaves room for part headers and boundaries on top of
// the configured upload limit.
const multipartOverhead = 1 << 20

type createPlaylistRequest struct {
	Name string `json:"name"`
}

type addVideoRequest struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
	Thumb   string `json:"thumb"`
}

type rateRequest struct {
	Rating *json.Number `json:"rating"`
}

type itemsResponse struct {
	Items []library.Item `json:"items"`
}

func owner(r *http.Request) string {
	id, _ := auth.OwnerFrom(r.Context())
	return id
}

func (s *Server) listPlaylists(w http.ResponseWriter, r *http.Request) {
	list, err := s.playlists.List(r.Context(), owner(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	created, err := s.playlists.Create(r.Context(), owner(r), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getPlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := s.playlists.Get(r.Context(), owner(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.playlists.Delete(r.Context(), owner(r), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// listItems serves the filtered and sorted view of one playlist.
// Query parameters: q (title filter) and sort (az, za, rate or a full mode name).
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	items, err := s.playlists.Items(r.Context(), owner(r), mux.Vars(r)["id"], query.Get("q"), query.Get("sort"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: items})
}

func (s *Server) addRemoteItem(w http.ResponseWriter, r *http.Request) {
	var req addVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	p, err := s.playlists.AddRemote(r.Context(), owner(r), mux.Vars(r)["id"], library.RemoteItem{
		ItemID:    req.VideoID,
		Title:     req.Title,
		Thumbnail: req.Thumb,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// uploadAudio streams the first "mp3" file part of a multipart body into the
// playlist service without buffering the whole request.
func (s *Server) uploadAudio(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+multipartOverhead)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expected a multipart/form-data upload"})
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no file uploaded"})
			return
		}
		if err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				s.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart payload"})
			return
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		p, err := s.playlists.AddUpload(r.Context(), owner(r), mux.Vars(r)["id"], playlists.Upload{
			Body:        part,
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
		})
		_ = part.Close()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
		return
	}
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	p, err := s.playlists.RemoveItem(r.Context(), owner(r), vars["id"], vars["itemId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) rateItem(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Rating == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "rating must be a number"})
		return
	}

	rating, err := req.Rating.Float64()
	if err != nil || rating != math.Trunc(rating) || math.Abs(rating) > math.MaxInt32 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "rating must be a whole number between 0 and 5"})
		return
	}

	vars := mux.Vars(r)
	p, err := s.playlists.Rate(r.Context(), owner(r), vars["id"], vars["itemId"], int(rating))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
