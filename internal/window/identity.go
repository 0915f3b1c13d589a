package window

import (
	"fmt"
	"strings"
)

// Priority selects which identity field dominates when ranking candidates
type Priority int

const (
	PriorityTitle Priority = iota
	PriorityClass
	PriorityExecutable
)

// Priorities lists every recognized priority in display order
var Priorities = []Priority{PriorityTitle, PriorityClass, PriorityExecutable}

func (p Priority) String() string {
	switch p {
	case PriorityTitle:
		return "title"
	case PriorityClass:
		return "class"
	case PriorityExecutable:
		return "executable"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority accepts the names produced by String plus "exe". An empty
// string yields PriorityTitle.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "title":
		return PriorityTitle, nil
	case "class":
		return PriorityClass, nil
	case "executable", "exe":
		return PriorityExecutable, nil
	default:
		return PriorityTitle, fmt.Errorf("unknown match priority: %q (expected title, class, or executable)", s)
	}
}

// colonEscape keeps descriptor fields from colliding with the separator
const colonEscape = "#3A"

// Identity is the persisted description of a window, independent of its
// current handle
type Identity struct {
	Title      string   `json:"title"`
	Class      string   `json:"class"`
	Executable string   `json:"executable"`
	Priority   Priority `json:"priority"`
}

// ParseIdentity decodes a "title:class:executable" descriptor. Missing
// trailing fields are left empty.
func ParseIdentity(descriptor string, priority Priority) Identity {
	id := Identity{Priority: priority}
	if descriptor == "" {
		return id
	}

	parts := strings.SplitN(descriptor, ":", 3)
	fields := []*string{&id.Title, &id.Class, &id.Executable}
	for i, part := range parts {
		*fields[i] = strings.ReplaceAll(part, colonEscape, ":")
	}
	return id
}

// IdentityOf builds the identity of a live window
func IdentityOf(info Info, priority Priority) Identity {
	return Identity{
		Title:      info.Title,
		Class:      info.Class,
		Executable: info.Executable,
		Priority:   priority,
	}
}

// Descriptor encodes id in the form ParseIdentity reads
func (id Identity) Descriptor() string {
	esc := func(s string) string {
		return strings.ReplaceAll(s, ":", colonEscape)
	}
	return esc(id.Title) + ":" + esc(id.Class) + ":" + esc(id.Executable)
}

// Empty reports whether no field is set
func (id Identity) Empty() bool {
	return id.Title == "" && id.Class == "" && id.Executable == ""
}

// Trackable reports whether id carries enough to search for a window. An
// executable alone is not enough.
func (id Identity) Trackable() bool {
	return id.Title != "" || id.Class != ""
}

func (id Identity) String() string {
	return fmt.Sprintf("title=%q class=%q exe=%q priority=%s", id.Title, id.Class, id.Executable, id.Priority)
}
