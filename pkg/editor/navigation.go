package editor

// Navigation is the history of sessions left by following citations.
type Navigation struct {
	stack []Session
}

func NewNavigation() *Navigation {
	return &Navigation{}
}

// Push records a deep copy of the live session. Call it before loading the
// document being navigated to.
func (n *Navigation) Push(st *Store) {
	n.stack = append(n.stack, st.Snapshot())
}

// Pop restores the most recent snapshot into st. It reports false, leaving
// st untouched, when the history is empty.
func (n *Navigation) Pop(st *Store) bool {
	snap, ok := n.take()
	if !ok {
		return false
	}
	st.Restore(snap)
	return true
}

// Discard drops the most recent snapshot without restoring it.
func (n *Navigation) Discard() bool {
	_, ok := n.take()
	return ok
}

func (n *Navigation) Depth() int {
	return len(n.stack)
}

func (n *Navigation) take() (Session, bool) {
	if len(n.stack) == 0 {
		return Session{}, false
	}
	last := len(n.stack) - 1
	snap := n.stack[last]
	n.stack[last] = Session{}
	n.stack = n.stack[:last]
	return snap, true
}
