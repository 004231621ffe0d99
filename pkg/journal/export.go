package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot is the exported form of one session.
type Snapshot struct {
	Session Session `json:"session"`
	Frames  []Entry `json:"frames"`
}

// Snapshot collects a session and all of its frames.
func (s *Store) Snapshot(ctx context.Context, session string) (Snapshot, error) {
	sessions, err := s.Sessions(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	for _, sess := range sessions {
		if sess.ID != session {
			continue
		}
		frames, err := s.List(ctx, session, 0)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Session: sess, Frames: frames}, nil
	}
	return Snapshot{}, fmt.Errorf("unknown session %q", session)
}

// Export writes snap as indented JSON to path.
func Export(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return err
	}
	return file.Close()
}
