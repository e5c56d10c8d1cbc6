// Package model defines the practice history and its document format.
package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Shot is the outcome of a single arrow.
type Shot uint8

const (
	// Hit means the arrow struck the target (mato).
	Hit Shot = iota
	// Miss means the arrow left the bow cleanly but missed.
	Miss
	// Shitsu is a failure of technique or equipment during the shot.
	Shitsu
)

// ErrUnknownShot is returned when a shot tag or glyph is not recognised.
var ErrUnknownShot = errors.New("unknown shot")

// Tag values are the persisted spelling and must not change.
const (
	tagHit    = "Hit"
	tagMiss   = "Miss"
	tagShitsu = "Shitsu"
)

// String returns the persisted tag of the shot.
func (s Shot) String() string {
	switch s {
	case Hit:
		return tagHit
	case Miss:
		return tagMiss
	case Shitsu:
		return tagShitsu
	default:
		return fmt.Sprintf("Shot(%d)", uint8(s))
	}
}

// Glyph returns the single-character mark used in set listings.
func (s Shot) Glyph() string {
	switch s {
	case Hit:
		return "O"
	case Miss:
		return "X"
	case Shitsu:
		return "/"
	default:
		return "?"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Shot) MarshalText() ([]byte, error) {
	switch s {
	case Hit, Miss, Shitsu:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownShot, uint8(s))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler. Only exact tags are accepted.
func (s *Shot) UnmarshalText(text []byte) error {
	switch string(text) {
	case tagHit:
		*s = Hit
	case tagMiss:
		*s = Miss
	case tagShitsu:
		*s = Shitsu
	default:
		return fmt.Errorf("%w: %q", ErrUnknownShot, string(text))
	}
	return nil
}

// ParseShot accepts a tag in any case, a glyph, or a short alias.
func ParseShot(value string) (Shot, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "hit", "o", "h", "1":
		return Hit, nil
	case "miss", "x", "m", "0":
		return Miss, nil
	case "shitsu", "/", "s":
		return Shitsu, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownShot, value)
	}
}

// Set is one bout of shots in shooting order.
type Set struct {
	Shots []Shot
}

// RecordSet builds a set from shots. Arity is not validated.
func RecordSet(shots ...Shot) Set {
	return Set{Shots: slices.Clone(shots)}
}

// Hits counts hits in the set.
func (s Set) Hits() int { return s.count(Hit) }

// Misses counts ordinary misses in the set.
func (s Set) Misses() int { return s.count(Miss) }

// NumberOfShots returns the number of arrows shot.
func (s Set) NumberOfShots() int { return len(s.Shots) }

// HadShitsu reports whether any shot was a shitsu.
func (s Set) HadShitsu() bool { return s.count(Shitsu) > 0 }

// Equal reports whether both sets hold the same shots in the same order.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.Shots, other.Shots)
}

func (s Set) count(kind Shot) int {
	n := 0
	for _, shot := range s.Shots {
		if shot == kind {
			n++
		}
	}
	return n
}

// Session holds all sets shot in one sitting.
type Session struct {
	Sets []Set
}

// Statistics aggregates every set of the session.
func (s Session) Statistics() Statistics {
	var st Statistics
	for _, set := range s.Sets {
		st.Add(set)
	}
	return st
}

// Equal reports whether both sessions hold equal sets in the same order.
func (s Session) Equal(other Session) bool {
	return slices.EqualFunc(s.Sets, other.Sets, Set.Equal)
}

// Clone returns a copy whose set list can be appended to independently.
func (s Session) Clone() Session {
	if s.Sets == nil {
		return Session{}
	}
	sets := make([]Set, len(s.Sets))
	for i, set := range s.Sets {
		sets[i] = Set{Shots: slices.Clone(set.Shots)}
	}
	return Session{Sets: sets}
}

// Identity locates the stored copy of a state. The zero value means the state
// has never been persisted.
type Identity struct {
	ID  string
	Rev string
}

// Persisted reports whether the identity names a stored document.
func (i Identity) Persisted() bool {
	return i.ID != ""
}

// State is the full practice history: closed sessions plus the one in progress.
type State struct {
	Identity Identity
	Past     []Session
	Current  Session
}

// Clone returns an independent copy of the state.
func (s State) Clone() State {
	out := State{
		Identity: s.Identity,
		Current:  s.Current.Clone(),
	}
	if s.Past != nil {
		out.Past = make([]Session, len(s.Past))
		for i, sess := range s.Past {
			out.Past[i] = sess.Clone()
		}
	}
	return out
}

// Equal compares identity, session order, set order and shot order.
func (s State) Equal(other State) bool {
	if s.Identity != other.Identity {
		return false
	}
	if !s.Current.Equal(other.Current) {
		return false
	}
	return slices.EqualFunc(s.Past, other.Past, Session.Equal)
}

// Statistics summarises a group of shots. Shitsu shots count toward Total but
// neither toward Hits nor Misses, so Hits+Misses+Shitsu == Total.
type Statistics struct {
	Total  int
	Hits   int
	Misses int
	Shitsu int
}

// Add folds a set into the statistics.
func (st *Statistics) Add(set Set) {
	st.Total += set.NumberOfShots()
	st.Hits += set.Hits()
	st.Misses += set.Misses()
	st.Shitsu += set.count(Shitsu)
}

// HitRate returns hits/total. ok is false when no shots were recorded.
func (st Statistics) HitRate() (rate float64, ok bool) {
	if st.Total == 0 {
		return 0, false
	}
	return float64(st.Hits) / float64(st.Total), true
}

// FormatHitRate renders the hit rate as a percentage, or "n/a" without shots.
func (st Statistics) FormatHitRate() string {
	rate, ok := st.HitRate()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", rate*100)
}
