package session

import "aerialdetect/internal/model"

// Store holds the most recent result set of one session together with the
// pager over its detections. Installing a set always resets the pager.
type Store struct {
	current *model.ResultSet
	pager   Pager
}

// Install replaces the current result set and returns to the all view.
func (s *Store) Install(rs *model.ResultSet) {
	s.current = rs
	s.pager.Reset(rs.Len())
}

// Current returns the active result set, if one was installed.
func (s *Store) Current() (*model.ResultSet, bool) {
	return s.current, s.current != nil
}

// Pager returns the pager bound to the current result set.
func (s *Store) Pager() *Pager {
	return &s.pager
}
