package session

import (
	"fmt"
	"sync"
)

// Session owns the ordered tabs of one workbench instance plus the explicit
// active index. There is no ambient "current tab": callers address tabs
// through the session.
type Session struct {
	mu     sync.Mutex
	tabs   []*Tab
	active int
}

func New() *Session {
	return &Session{}
}

// NewTab appends a pending tab for a submitted statement and makes it
// active.
func (s *Session) NewTab(query string) *Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	tab := newTab(query)
	s.tabs = append(s.tabs, tab)
	s.active = len(s.tabs) - 1
	return tab
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tabs)
}

func (s *Session) Tab(index int) (*Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tabs) {
		return nil, fmt.Errorf("tab index %d out of range [0,%d)", index, len(s.tabs))
	}
	return s.tabs[index], nil
}

// Active returns the active tab and its index, or nil when the session is
// empty.
func (s *Session) Active() (*Tab, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tabs) == 0 {
		return nil, -1
	}
	return s.tabs[s.active], s.active
}

func (s *Session) SetActive(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tabs) {
		return fmt.Errorf("tab index %d out of range [0,%d)", index, len(s.tabs))
	}
	s.active = index
	return nil
}

// Close cancels any in-flight fetch for the tab and removes it, releasing
// its tile store.
func (s *Session) Close(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.tabs) {
		s.mu.Unlock()
		return fmt.Errorf("tab index %d out of range [0,%d)", index, len(s.tabs))
	}
	tab := s.tabs[index]
	s.tabs = append(s.tabs[:index], s.tabs[index+1:]...)
	if s.active >= len(s.tabs) && s.active > 0 {
		s.active = len(s.tabs) - 1
	}
	s.mu.Unlock()

	tab.Cancel()
	return nil
}
