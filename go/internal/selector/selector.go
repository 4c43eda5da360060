// Package selector picks one item from a room's list, uniformly at random,
// and drives the timed reveal that shows slowing decoys before pinning the
// already-committed pick.
package selector

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/duopick/duopick/go/internal/models"
)

var (
	// ErrEmptyList is returned when there is nothing to select from.
	ErrEmptyList = errors.New("nothing to select from")
	// ErrRevealInProgress is returned by Retry while a reveal is running;
	// retry is only valid once the pick is committed.
	ErrRevealInProgress = errors.New("reveal in progress")
	// ErrRevealRunning is returned by Start when a reveal was already started.
	ErrRevealRunning = errors.New("reveal already started")
	// ErrNotCommitted is returned when the committed pick is read too early.
	ErrNotCommitted = errors.New("no committed pick yet")
	// ErrClosed is returned after the reveal's view has been torn down.
	ErrClosed = errors.New("selector closed")
)

const (
	// RevealDuration is the fixed total length of the decoy animation.
	RevealDuration = 2000 * time.Millisecond
	// tickStart and tickEnd bound the decoy interval: fast at first,
	// slowing monotonically toward the end.
	tickStart = 60 * time.Millisecond
	tickEnd   = 300 * time.Millisecond
)

// Phase is the reveal state. Retry is valid only from PhaseCommitted.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRevealing Phase = "revealing"
	PhaseCommitted Phase = "committed"
)

// Selector performs unbiased selection with its own seeded source.
type Selector struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// New constructs a Selector seeded once.
func New() *Selector {
	return &Selector{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Select returns one element of list with probability 1/len(list), over the
// list contents as passed at call time.
func (s *Selector) Select(list []models.Item) (models.Item, error) {
	if len(list) == 0 {
		return models.Item{}, ErrEmptyList
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return list[s.rng.Intn(len(list))], nil
}

// decoyInterval interpolates the tick length linearly from tickStart to
// tickEnd across the reveal. Monotonically non-decreasing in elapsed, and
// never below tickStart, so the loop always terminates by RevealDuration.
func decoyInterval(elapsed time.Duration) time.Duration {
	if elapsed >= RevealDuration {
		return tickEnd
	}
	return tickStart + (tickEnd-tickStart)*elapsed/RevealDuration
}

// Reveal drives one selection's reveal animation. The final pick is
// committed the moment the reveal starts; the decoys are cosmetic.
type Reveal struct {
	selector *Selector
	clock    clockwork.Clock

	// onDecoy is called for each transient decoy, onCommit once with the
	// final pick when the display pins to it.
	onDecoy  func(models.Item)
	onCommit func(models.Item)

	mu     sync.Mutex
	phase  Phase
	pick   models.Item
	closed bool
	cancel chan struct{}
}

// NewReveal creates an idle reveal. Callbacks may be nil; they run under
// the reveal's lock and must not call back into it.
func NewReveal(selector *Selector, clock clockwork.Clock, onDecoy, onCommit func(models.Item)) *Reveal {
	return &Reveal{
		selector: selector,
		clock:    clock,
		onDecoy:  onDecoy,
		onCommit: onCommit,
		phase:    PhaseIdle,
	}
}

// Start samples the final pick immediately, enters PhaseRevealing, and runs
// the decoy loop for RevealDuration before committing.
func (r *Reveal) Start(list []models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.phase != PhaseIdle {
		return ErrRevealRunning
	}
	return r.beginLocked(list)
}

// Retry re-runs the whole protocol with a freshly sampled pick. Only valid
// from PhaseCommitted: a reveal in flight cannot be restarted, and the
// previous pick is never replayed.
func (r *Reveal) Retry(list []models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	switch r.phase {
	case PhaseRevealing:
		return ErrRevealInProgress
	case PhaseIdle:
		return ErrNotCommitted
	}
	return r.beginLocked(list)
}

// beginLocked commits a fresh pick and launches the decoy loop. Caller
// holds r.mu.
func (r *Reveal) beginLocked(list []models.Item) error {
	pick, err := r.selector.Select(list)
	if err != nil {
		return err
	}
	snapshot := make([]models.Item, len(list))
	copy(snapshot, list)

	r.pick = pick
	r.phase = PhaseRevealing
	r.cancel = make(chan struct{})
	go r.run(snapshot, pick, r.cancel)
	return nil
}

// run emits decoys on a slowing cadence, then pins the committed pick.
func (r *Reveal) run(list []models.Item, pick models.Item, cancel chan struct{}) {
	// The display shows the first element before the first tick fires.
	if !r.emitDecoy(list[0], cancel) {
		return
	}

	var elapsed time.Duration
	for elapsed < RevealDuration {
		interval := decoyInterval(elapsed)
		timer := r.clock.NewTimer(interval)
		select {
		case <-cancel:
			if !timer.Stop() {
				select {
				case <-timer.Chan():
				default:
				}
			}
			return
		case <-timer.Chan():
		}
		elapsed += interval

		decoy, err := r.selector.Select(list)
		if err != nil {
			// list was non-empty at start; unreachable
			return
		}
		if !r.emitDecoy(decoy, cancel) {
			return
		}
	}
	r.commit(pick, cancel)
}

// emitDecoy invokes onDecoy unless the reveal was torn down. Reports
// whether the loop should continue. The callback runs under r.mu so that
// Close cannot return while an invocation is still in flight; callbacks
// are display writes and must not call back into the Reveal.
func (r *Reveal) emitDecoy(decoy models.Item, cancel chan struct{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.cancel != cancel {
		return false
	}
	if r.onDecoy != nil {
		r.onDecoy(decoy)
	}
	return true
}

// commit holds r.mu across the callback for the same reason as emitDecoy.
func (r *Reveal) commit(pick models.Item, cancel chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.cancel != cancel {
		return
	}
	r.phase = PhaseCommitted
	if r.onCommit != nil {
		r.onCommit(pick)
	}
}

// Phase returns the current reveal state.
func (r *Reveal) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Pick returns the committed pick once the reveal has pinned it.
func (r *Reveal) Pick() (models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseCommitted {
		return models.Item{}, ErrNotCommitted
	}
	return r.pick, nil
}

// Close tears the reveal down. All pending timer continuations stop; no
// callback fires after Close returns.
func (r *Reveal) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.cancel != nil {
		close(r.cancel)
	}
}
