package nav

import "github.com/notanas/notanas-cli/internal/models"

// History is the ancestor stack of the current folder. The bottom entry is
// the root sentinel "". History is a value: every method returns a new one
// and never modifies the receiver.
type History struct {
	ids []string
}

// NewHistory returns the root history [""].
func NewHistory() History {
	return History{ids: []string{models.RootID}}
}

// Push returns the history with id on top. Pushing the root resets the
// history to [""].
func (h History) Push(id string) History {
	if id == models.RootID {
		return NewHistory()
	}
	ids := make([]string, len(h.ids), len(h.ids)+1)
	copy(ids, h.ids)
	return History{ids: append(ids, id)}
}

// Pop returns the history without its top entry.
func (h History) Pop() History {
	if len(h.ids) == 0 {
		return h
	}
	ids := make([]string, len(h.ids)-1)
	copy(ids, h.ids)
	return History{ids: ids}
}

// Top returns the top entry.
func (h History) Top() (string, bool) {
	if len(h.ids) == 0 {
		return "", false
	}
	return h.ids[len(h.ids)-1], true
}

// Parent returns the entry below the top, the target of a back navigation.
func (h History) Parent() (string, bool) {
	if len(h.ids) < 2 {
		return "", false
	}
	return h.ids[len(h.ids)-2], true
}

// Len returns the depth of the history.
func (h History) Len() int {
	return len(h.ids)
}

// IDs returns a copy of the stack, bottom first.
func (h History) IDs() []string {
	out := make([]string, len(h.ids))
	copy(out, h.ids)
	return out
}
