package mempool

import "time"

// timedMutex serializes all pool mutations. Acquisition waits at most the
// configured bound; exceeding it yields ErrLockTimeout instead of blocking
// the caller indefinitely.
type timedMutex struct {
	sem     chan struct{}
	timeout time.Duration
}

func newTimedMutex(timeout time.Duration) *timedMutex {
	if timeout == 0 {
		timeout = DefaultLockTimeout
	}
	return &timedMutex{
		sem:     make(chan struct{}, 1),
		timeout: timeout,
	}
}

func (m *timedMutex) lock() error {
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-time.After(m.timeout):
		return ErrLockTimeout
	}
}

func (m *timedMutex) unlock() {
	<-m.sem
}
