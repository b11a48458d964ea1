// Package tui provides a Bubble Tea inspector for a running mobcore session.
package tui

// History keeps the most recent commands for Up/Down recall.
type History struct {
	entries []string
	max     int
	back    int // 0 = editing a fresh line, n = n entries back from the newest
}

// NewHistory creates a history holding at most max entries.
func NewHistory(max int) *History {
	return &History{entries: make([]string, 0, max), max: max}
}

// Push records a command. Repeating the newest entry is a no-op.
func (h *History) Push(cmd string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Prev steps one entry older, stopping at the oldest.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.back < len(h.entries) {
		h.back++
	}
	return h.entries[len(h.entries)-h.back], true
}

// Next steps one entry newer. Stepping past the newest returns to a fresh
// line and reports false.
func (h *History) Next() (string, bool) {
	if h.back <= 1 {
		h.back = 0
		return "", false
	}
	h.back--
	return h.entries[len(h.entries)-h.back], true
}

// ResetCursor returns to a fresh line.
func (h *History) ResetCursor() {
	h.back = 0
}
