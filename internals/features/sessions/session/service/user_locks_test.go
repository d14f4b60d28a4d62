package service

import (
	"sync"
	"testing"
)

func TestUserLocks_SerializesSameUser(t *testing.T) {
	l := newUserLocks()
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(7)
			defer unlock()
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxSeen)
	}
	if l.size() != 0 {
		t.Fatalf("expected map drained, got %d", l.size())
	}
}

func TestUserLocks_IndependentUsers(t *testing.T) {
	l := newUserLocks()
	unlockA := l.Lock(1)
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock(2)
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}
