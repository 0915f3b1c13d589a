package window

import (
	"strings"

	"github.com/bryanchriswhite/livewindow/internal/logger"
)

const noMatch = -1

// Title agreement levels, lower is closer
const (
	titleExact = iota
	titlePartial
	titleNone
)

// Matcher resolves an Identity to the best live window
type Matcher struct {
	sys System
}

// NewMatcher creates a matcher over the given window system
func NewMatcher(sys System) *Matcher {
	return &Matcher{sys: sys}
}

// Resolve enumerates top-level windows and returns the best-ranked match for
// id. Ties keep the window enumerated first. ErrNoWindow is returned when
// nothing qualifies, including when the winner disappears before it can be
// handed back.
func (m *Matcher) Resolve(id Identity, excludeMinimized bool) (Handle, error) {
	if id.Empty() {
		return 0, ErrNoWindow
	}

	log := logger.WithComponent("matcher")

	var (
		best      Info
		bestScore = noMatch
		seen      int
	)
	for w := range m.sys.Windows(excludeMinimized) {
		seen++
		if excludeMinimized && w.Minimized {
			continue
		}
		score := Rank(id, w)
		if score == noMatch {
			continue
		}
		if bestScore == noMatch || score < bestScore {
			best, bestScore = w, score
			if score == 0 {
				break
			}
		}
	}

	if bestScore == noMatch {
		log.Debug().Int("windows", seen).Str("identity", id.String()).Msg("No window matched")
		return 0, ErrNoWindow
	}

	// The window may have closed or been minimized since it was enumerated
	if !m.sys.IsValid(best.Handle) || (excludeMinimized && m.sys.IsIconic(best.Handle)) {
		log.Debug().Stringer("handle", best.Handle).Msg("Best candidate vanished before use")
		return 0, ErrNoWindow
	}

	log.Debug().
		Stringer("handle", best.Handle).
		Str("title", best.Title).
		Str("class", best.Class).
		Str("exe", best.Executable).
		Int("score", bestScore).
		Msg("Resolved window")
	return best.Handle, nil
}

// Rank scores w against id; lower is better and -1 means w does not match.
//
// A window whose priority field agrees with id always ranks in the first
// tier (0-9), ordered by how closely the title and the remaining fields
// agree. A window that misses the priority field can still rank in the
// second tier (10-12) when every other configured field agrees, which lets
// a window be re-acquired after, for example, its title changed.
func Rank(id Identity, w Info) int {
	title := titleAgreement(id.Title, w.Title)
	classSet, classOK := id.Class != "", strings.EqualFold(id.Class, w.Class)
	exeSet, exeOK := id.Executable != "", strings.EqualFold(id.Executable, w.Executable)

	var primary bool
	switch id.Priority {
	case PriorityClass:
		primary = classSet && classOK
	case PriorityExecutable:
		primary = exeSet && exeOK
	default:
		primary = title == titleExact
	}

	if primary {
		score := title * 3
		if classSet && !classOK {
			score++
		}
		if exeSet && !exeOK {
			score++
		}
		return score
	}

	// Second tier: every configured non-priority field must agree
	checked := 0
	if id.Priority == PriorityTitle && title == titlePartial {
		checked++
	}
	if id.Priority != PriorityTitle && id.Title != "" {
		if title == titleNone {
			return noMatch
		}
		checked++
	}
	if id.Priority != PriorityClass && classSet {
		if !classOK {
			return noMatch
		}
		checked++
	}
	if id.Priority != PriorityExecutable && exeSet {
		if !exeOK {
			return noMatch
		}
		checked++
	}
	if checked == 0 {
		return noMatch
	}
	return 10 + title
}

func titleAgreement(want, have string) int {
	if want == "" || have == "" {
		return titleNone
	}
	if strings.EqualFold(want, have) {
		return titleExact
	}
	w, h := strings.ToLower(want), strings.ToLower(have)
	if strings.Contains(h, w) || strings.Contains(w, h) {
		return titlePartial
	}
	return titleNone
}
