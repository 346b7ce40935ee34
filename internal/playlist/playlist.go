// Package playlist orders a snapshot of items for review.
//
// A Scheduler keeps the candidates selected by a level filter, an ordered
// playlist built from them and a cursor into it. It performs no I/O and is
// not safe for concurrent use.
package playlist

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"github.com/hiansit/ankiflow/internal/domain"
)

// Mode selects how the playlist is ordered.
type Mode string

const (
	// Random shuffles the candidates and reshuffles each time the playlist runs out.
	Random Mode = "random"
	// IDAsc orders by ascending item id.
	IDAsc Mode = "id_asc"
	// LastStudied orders by ascending last studied time, never studied first.
	// Any unrecognised mode behaves like LastStudied.
	LastStudied Mode = "last_studied"
)

// Scheduler produces an endless review sequence over a filtered snapshot.
type Scheduler struct {
	rng *rand.Rand

	mode        Mode
	candidates  []domain.ItemWithProgress
	playlist    []domain.ItemWithProgress
	cursor      int
	replenishes bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRand sets the random source used for shuffling.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// New creates an empty scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh rebuilds the playlist from items whose level is in activeLevels,
// ordered by mode, and resets the cursor.
func (s *Scheduler) Refresh(items []domain.ItemWithProgress, activeLevels []int, mode Mode) {
	active := make(map[int]struct{}, len(activeLevels))
	for _, l := range activeLevels {
		active[l] = struct{}{}
	}

	candidates := make([]domain.ItemWithProgress, 0, len(items))
	for _, item := range items {
		if _, ok := active[item.Level]; ok {
			candidates = append(candidates, item)
		}
	}

	s.mode = mode
	s.candidates = candidates
	s.cursor = 0
	s.replenishes = false

	if len(candidates) == 0 {
		s.playlist = nil
		return
	}

	switch mode {
	case Random:
		s.replenishes = true
		s.playlist = s.shuffled()
	case IDAsc:
		s.playlist = slices.Clone(candidates)
		slices.SortStableFunc(s.playlist, func(a, b domain.ItemWithProgress) int {
			return cmp.Compare(a.ID, b.ID)
		})
	default:
		s.playlist = slices.Clone(candidates)
		slices.SortStableFunc(s.playlist, func(a, b domain.ItemWithProgress) int {
			return cmp.Compare(a.LastStudied, b.LastStudied)
		})
	}
}

// Next returns the item under the cursor and advances it. At the end of the
// playlist a random session reshuffles and other modes wrap to the start.
// It reports false only when the playlist is empty.
func (s *Scheduler) Next() (domain.ItemWithProgress, bool) {
	if len(s.playlist) == 0 {
		return domain.ItemWithProgress{}, false
	}
	if s.cursor >= len(s.playlist) {
		if s.replenishes {
			s.playlist = s.shuffled()
		}
		s.cursor = 0
	}

	item := s.playlist[s.cursor]
	s.cursor++
	return item, true
}

// Status describes the scheduler position for display.
type Status struct {
	Mode     Mode
	Position int // number of items returned since the last wrap
	Total    int
}

// Status returns the current position in the playlist.
func (s *Scheduler) Status() Status {
	return Status{Mode: s.mode, Position: s.cursor, Total: len(s.playlist)}
}

// Len returns the playlist length.
func (s *Scheduler) Len() int {
	return len(s.playlist)
}

// Items returns a copy of the current playlist order.
func (s *Scheduler) Items() []domain.ItemWithProgress {
	return slices.Clone(s.playlist)
}

// ParseMode returns the mode for a name; unknown names order by last studied.
func ParseMode(name string) Mode {
	switch Mode(name) {
	case Random, IDAsc:
		return Mode(name)
	default:
		return LastStudied
	}
}

func (s *Scheduler) shuffled() []domain.ItemWithProgress {
	out := slices.Clone(s.candidates)
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
