package pipeline

import "sync"

// subscriber delivers statuses in publish order without ever blocking the
// publisher. The queue is unbounded; a slow reader only delays itself.
type subscriber struct {
	mu      sync.Mutex
	queue   []Status
	closing bool

	wake chan struct{}
	out  chan Status
	done chan struct{}
	once sync.Once
}

func newSubscriber() *subscriber {
	s := &subscriber{
		wake: make(chan struct{}, 1),
		out:  make(chan Status),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscriber) push(st Status) {
	s.mu.Lock()
	s.queue = append(s.queue, st)
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return
			}
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		st := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- st:
		case <-s.done:
			return
		}
	}
}

// finish closes the channel once everything queued has been delivered.
func (s *subscriber) finish() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.signal()
}

// stop closes the channel right away, dropping anything queued.
func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}
