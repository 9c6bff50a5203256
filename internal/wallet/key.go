package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// KeyProvider is a wallet backed by one local private key.
type KeyProvider struct {
	mu         sync.Mutex
	key        *ecdsa.PrivateKey
	address    common.Address
	authorized bool
	chainID    uint64
	known      map[uint64]ChainParams
	subs       map[int]chan Event
	nextSub    int
}

// NewKeyProvider parses a hex private key.
func NewKeyProvider(hexKey string, chainID uint64) (*KeyProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	return NewKeyProviderFromKey(key, chainID), nil
}

// NewKeyProviderFromKey wraps key. The wallet starts on chainID and knows no
// other chain until one is added.
func NewKeyProviderFromKey(key *ecdsa.PrivateKey, chainID uint64) *KeyProvider {
	return &KeyProvider{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		known:   map[uint64]ChainParams{chainID: {}},
		subs:    make(map[int]chan Event),
	}
}

func (p *KeyProvider) Address() common.Address { return p.address }

func (p *KeyProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.authorized {
		p.authorized = true
		p.emit(Event{Type: AccountsChanged, Accounts: []common.Address{p.address}})
	}
	return []common.Address{p.address}, nil
}

func (p *KeyProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.authorized {
		return []common.Address{}, nil
	}
	return []common.Address{p.address}, nil
}

func (p *KeyProvider) ChainID(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID, nil
}

func (p *KeyProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if chainID == p.chainID {
		return nil
	}
	if _, ok := p.known[chainID]; !ok {
		return &ProviderError{Code: CodeUnknownChain, Message: "Unrecognized chain ID"}
	}
	p.chainID = chainID
	p.emit(Event{Type: ChainChanged, ChainID: chainID})
	return nil
}

func (p *KeyProvider) AddChain(ctx context.Context, params ChainParams) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.known[uint64(params.ChainID)] = params
	return nil
}

func (p *KeyProvider) SignTx(ctx context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	p.mu.Lock()
	authorized := p.authorized
	p.mu.Unlock()
	if !authorized || from != p.address {
		return nil, &ProviderError{Code: CodeUnauthorized, Message: "account not authorized"}
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), p.key)
}

// Revoke drops the authorization, as when the user disconnects the site in
// the wallet itself.
func (p *KeyProvider) Revoke() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.authorized {
		p.authorized = false
		p.emit(Event{Type: AccountsChanged, Accounts: []common.Address{}})
	}
}

func (p *KeyProvider) Subscribe() (<-chan Event, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	ch := make(chan Event, 16)
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			close(ch)
		})
	}
}

// emit must be called with p.mu held. Slow subscribers miss events.
func (p *KeyProvider) emit(ev Event) {
	for _, ch := range p.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
