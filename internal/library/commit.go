package library

import "context"

type snapshot struct {
	playlists []Playlist
}

func (s *snapshot) find(ownerID, playlistID string) int {
	for i, p := range s.playlists {
		if p.ID == playlistID && p.OwnerID == ownerID {
			return i
		}
	}
	return -1
}

// mutate runs one acquire, load, change, save, release cycle. Nothing is
// written when fn fails.
func (s *Store) mutate(ctx context.Context, op string, fn func(*snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Callers may have given up while waiting for the mutex.
	if err := ctx.Err(); err != nil {
		return storageError(op, "wait", err)
	}

	if locker, ok := s.persist.(Locker); ok {
		unlock, err := locker.Lock(ctx)
		if err != nil {
			s.log.Error().Err(err).Str("op", op).Msg("acquire library lock")
			return storageError(op, "lock", err)
		}
		defer func() {
			if err := unlock(); err != nil {
				s.log.Warn().Err(err).Str("op", op).Msg("release library lock")
			}
		}()
	}

	playlists, err := s.persist.LoadAll(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("load library")
		return storageError(op, "load", err)
	}

	lib := &snapshot{playlists: playlists}
	if err := fn(lib); err != nil {
		return err
	}

	if err := s.persist.SaveAll(ctx, lib.playlists); err != nil {
		s.log.Error().Err(err).Str("op", op).Msg("save library")
		return storageError(op, "save", err)
	}

	s.log.Debug().Str("op", op).Int("playlists", len(lib.playlists)).Msg("library committed")
	return nil
}

// mutatePlaylist is mutate scoped to a single owned playlist; it returns the
// playlist as committed.
func (s *Store) mutatePlaylist(ctx context.Context, op, ownerID, playlistID string, fn func(*Playlist) error) (Playlist, error) {
	var updated Playlist
	err := s.mutate(ctx, op, func(lib *snapshot) error {
		idx := lib.find(ownerID, playlistID)
		if idx < 0 {
			return notFoundError(op, "playlist not found")
		}
		p := lib.playlists[idx].Clone()
		if err := fn(&p); err != nil {
			return err
		}
		lib.playlists[idx] = p
		updated = p
		return nil
	})
	if err != nil {
		return Playlist{}, err
	}
	return updated.Clone(), nil
}
