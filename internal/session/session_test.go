package session

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestLifecycle(t *testing.T) {
	s := New()
	if _, ok := s.Account(); ok {
		t.Fatal("new session should be disconnected")
	}

	alice := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob := common.HexToAddress("0x00000000000000000000000000000000000000b2")

	s.Open(alice, 534351)
	if a, ok := s.Account(); !ok || a != alice {
		t.Fatalf("account = %s, %v", a.Hex(), ok)
	}
	s.SetAccount(bob)
	s.SetChainID(1)
	st := s.Snapshot()
	if st.Account != bob || st.ChainID != 1 || !st.Connected || st.ConnectedAt.IsZero() {
		t.Fatalf("snapshot = %+v", st)
	}

	s.Close()
	if _, ok := s.Account(); ok {
		t.Fatal("closed session still connected")
	}
	s.SetAccount(alice)
	if a, _ := s.Account(); a != (common.Address{}) {
		t.Fatal("SetAccount should not reopen a closed session")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Open(common.BigToAddress(common.Big1), uint64(i))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
}
