// Package deck implements the swipe deck: an ordered candidate list with a
// cursor, a swiped set and the user's matches.
package deck

import (
	"fmt"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// Deck is owned by a single session and is not safe for concurrent use.
//
// Invariants: 0 <= cursor <= len(candidates); swiped ⊆ candidate ids;
// matched ⊆ swiped, except after Reset, which keeps matches.
type Deck struct {
	candidates []domain.Candidate
	index      map[string]int
	cursor     int
	swiped     map[string]struct{}
	matched    []string
}

// New builds a deck in presentation order. Candidates that fail validation
// or repeat an id are rejected.
func New(candidates []domain.Candidate) (*Deck, error) {
	d := &Deck{
		candidates: make([]domain.Candidate, 0, len(candidates)),
		index:      make(map[string]int, len(candidates)),
		swiped:     make(map[string]struct{}),
	}
	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := d.index[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidCandidate, c.ID)
		}
		d.index[c.ID] = len(d.candidates)
		d.candidates = append(d.candidates, c)
	}
	return d, nil
}

// Advance moves the cursor forward. No-op at the end.
func (d *Deck) Advance() {
	if d.cursor < len(d.candidates) {
		d.cursor++
	}
}

// Rewind moves the cursor back. No-op at the start.
func (d *Deck) Rewind() {
	if d.cursor > 0 {
		d.cursor--
	}
}

// RecordSwipe marks id as swiped, records a match for like and super_like,
// and advances unless the action is skip. Recording the same id twice does
// not duplicate membership.
func (d *Deck) RecordSwipe(id string, action domain.SwipeAction) error {
	if _, ok := d.index[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownCandidate, id)
	}
	d.swiped[id] = struct{}{}
	if action.IsMatch() && !d.IsMatched(id) {
		d.matched = append(d.matched, id)
	}
	if action != domain.ActionSkip {
		d.Advance()
	}
	return nil
}

// Reset rewinds to the first card and clears the swiped set.
// Matches are kept: they are the user's collection, not deck state.
func (d *Deck) Reset() {
	d.cursor = 0
	d.swiped = make(map[string]struct{})
}

// IsExhausted reports whether every candidate has been swiped.
func (d *Deck) IsExhausted() bool {
	return len(d.swiped) >= len(d.candidates)
}

// Current returns the candidate under the cursor.
func (d *Deck) Current() (domain.Candidate, bool) {
	if d.cursor >= len(d.candidates) {
		return domain.Candidate{}, false
	}
	return d.candidates[d.cursor], true
}

// Candidate looks up a candidate by id.
func (d *Deck) Candidate(id string) (domain.Candidate, bool) {
	i, ok := d.index[id]
	if !ok {
		return domain.Candidate{}, false
	}
	return d.candidates[i], true
}

// Cursor returns the current position.
func (d *Deck) Cursor() int { return d.cursor }

// Len returns the number of candidates.
func (d *Deck) Len() int { return len(d.candidates) }

// Remaining returns how many cards are left after the cursor.
func (d *Deck) Remaining() int { return len(d.candidates) - d.cursor }

// IsSwiped reports whether id has been swiped since the last reset.
func (d *Deck) IsSwiped(id string) bool {
	_, ok := d.swiped[id]
	return ok
}

// IsMatched reports whether id is in the match list.
func (d *Deck) IsMatched(id string) bool {
	for _, m := range d.matched {
		if m == id {
			return true
		}
	}
	return false
}

// Swiped returns swiped ids in deck order.
func (d *Deck) Swiped() []string {
	out := make([]string, 0, len(d.swiped))
	for _, c := range d.candidates {
		if _, ok := d.swiped[c.ID]; ok {
			out = append(out, c.ID)
		}
	}
	return out
}

// Matched returns matched ids in the order they were matched.
func (d *Deck) Matched() []string {
	out := make([]string, len(d.matched))
	copy(out, d.matched)
	return out
}

// Candidates returns a copy of the ordered candidate list.
func (d *Deck) Candidates() []domain.Candidate {
	out := make([]domain.Candidate, len(d.candidates))
	copy(out, d.candidates)
	return out
}

// Snapshot is a read-only view of the deck for presentation.
type Snapshot struct {
	Cursor    int               `json:"cursor"`
	Length    int               `json:"length"`
	Current   *domain.Candidate `json:"current,omitempty"`
	Swiped    []string          `json:"swiped"`
	Matched   []string          `json:"matched"`
	Exhausted bool              `json:"exhausted"`
}

// Snapshot captures the deck state. Matches survive Reset while the swiped
// set does not, so after a reset Matched may list ids absent from Swiped.
func (d *Deck) Snapshot() Snapshot {
	s := Snapshot{
		Cursor:    d.cursor,
		Length:    len(d.candidates),
		Swiped:    d.Swiped(),
		Matched:   d.Matched(),
		Exhausted: d.IsExhausted(),
	}
	if c, ok := d.Current(); ok {
		s.Current = &c
	}
	return s
}
