package storage

import (
	"fmt"
	"os"
	"sync"
	"syscall"
)

// withLock runs fn while holding both the in-process mutex for filePath and
// an exclusive flock on "<filePath>.lock", so concurrent CLI processes
// writing the same document take turns.
func (s *Storage) withLock(filePath string, fn func() error) error {
	s.mu.Lock()
	mu, ok := s.locks[filePath]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[filePath] = mu
	}
	s.mu.Unlock()

	mu.Lock()
	defer mu.Unlock()

	lockPath := filePath + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() {
		os.Remove(lockPath)
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}()

	return fn()
}
