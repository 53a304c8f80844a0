// Package session holds the state of one operator session: the account
// being served and the payment watch in flight, if any.
package session

import (
	"sync"

	"github.com/username/nanopos/src/models"
	"github.com/username/nanopos/src/nano"
)

// Watch is a running payment watch.
type Watch interface {
	Cancel()
	Status() models.WatchStatus
	Done() <-chan struct{}
}

// Session is shared by pointer between the reconciliation engine and the
// payment watcher.
type Session struct {
	mu      sync.RWMutex
	address string
	watch   Watch
}

// New creates a session for address. An empty address is allowed and must be
// set before syncing or watching.
func New(address string) (*Session, error) {
	s := &Session{}
	if address != "" {
		if err := nano.ValidateAddress(address); err != nil {
			return nil, err
		}
		s.address = address
	}
	return s, nil
}

// Address returns the current account address.
func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// SetAddress switches the session to another account. A watch on the old
// account is cancelled. It reports whether the address changed.
func (s *Session) SetAddress(address string) (bool, error) {
	if err := nano.ValidateAddress(address); err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.address == address {
		s.mu.Unlock()
		return false, nil
	}
	s.address = address
	prev := s.watch
	s.watch = nil
	s.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	return true, nil
}

// ReplaceWatch makes w the active watch and cancels the previous one.
func (s *Session) ReplaceWatch(w Watch) {
	s.mu.Lock()
	prev := s.watch
	s.watch = w
	s.mu.Unlock()

	if prev != nil && prev != w {
		prev.Cancel()
	}
}

// ActiveWatch returns the most recent watch, finished or not.
func (s *Session) ActiveWatch() Watch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watch
}

// Close cancels the active watch.
func (s *Session) Close() {
	s.mu.Lock()
	w := s.watch
	s.mu.Unlock()
	if w != nil {
		w.Cancel()
	}
}
