package session

import (
	"sync"
	"time"
)

// Upload is the image waiting for a predict action.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	UploadedAt  time.Time
}

// Session is the per-browser state: the pending upload, the result store and
// its pager. Callers hold Lock for the whole of one user action so actions on
// the same session never interleave.
type Session struct {
	ID string

	mu       sync.Mutex
	upload   *Upload
	store    Store
	lastSeen time.Time
}

// New returns an empty session.
func New(id string) *Session {
	return &Session{ID: id, lastSeen: time.Now()}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// SetUpload replaces the pending upload. The previous result set stays on
// screen until the next predict action.
func (s *Session) SetUpload(u *Upload) {
	s.upload = u
}

// Upload returns the pending upload, or nil.
func (s *Session) Upload() *Upload {
	return s.upload
}

// Store returns the session's result store.
func (s *Session) Store() *Store {
	return &s.store
}

// touch records activity for idle eviction. Guarded by the Manager lock.
func (s *Session) touch(now time.Time) {
	s.lastSeen = now
}
