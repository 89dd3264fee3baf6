package pipeline

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// schedule is a backoff.BackOff walking a fixed list of delays. Past the end
// of the list the last delay repeats.
type schedule struct {
	delays []time.Duration
	next   int
}

var _ backoff.BackOff = (*schedule)(nil)

func (s *schedule) NextBackOff() time.Duration {
	if len(s.delays) == 0 {
		return 0
	}
	d := s.delays[min(s.next, len(s.delays)-1)]
	s.next++
	return d
}

func (s *schedule) Reset() { s.next = 0 }

// Options tunes retry and timeout.
type Options struct {
	MaxAttempts int
	Backoff     []time.Duration
	// Timeout bounds a whole build, retries included.
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
		Backoff:     []time.Duration{time.Second, 2 * time.Second, 3 * time.Second},
		Timeout:     15 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	if o.Backoff == nil {
		o.Backoff = def.Backoff
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	return o
}

// policy builds the retry policy of one build: at most MaxAttempts calls,
// stopped early when ctx ends.
func (o Options) policy() *schedule {
	return &schedule{delays: o.Backoff}
}
