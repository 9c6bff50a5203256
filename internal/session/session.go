// Package session holds the connected wallet state. A Session is created once
// and passed by reference to the components that need it.
package session

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// State is a point-in-time copy of a Session.
type State struct {
	Connected   bool           `json:"connected"`
	Account     common.Address `json:"account"`
	ChainID     uint64         `json:"chainId"`
	ConnectedAt time.Time      `json:"connectedAt,omitempty"`
}

// Session tracks the authorized account and active chain. It is safe for
// concurrent use.
type Session struct {
	mu    sync.RWMutex
	state State
}

func New() *Session {
	return &Session{}
}

// Open starts a connected session.
func (s *Session) Open(account common.Address, chainID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{
		Connected:   true,
		Account:     account,
		ChainID:     chainID,
		ConnectedAt: time.Now(),
	}
}

// Close clears local state. Wallet-side authorization is untouched.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
}

// SetAccount updates the account of an open session. No-op when closed.
func (s *Session) SetAccount(account common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Connected {
		s.state.Account = account
	}
}

// SetChainID records the active chain. It is tracked even while disconnected
// so the network check is accurate as soon as a connection opens.
func (s *Session) SetChainID(chainID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ChainID = chainID
}

func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Account returns the connected account, if any.
func (s *Session) Account() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Account, s.state.Connected
}

func (s *Session) ChainID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ChainID
}
