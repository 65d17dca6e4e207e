package shell

// History is a small, append-only recall buffer for lines the user has
// entered. The shell reads lines through a plain bufio.Reader, which
// keeps no history of its own, so the `history` builtin (spec §9's
// supplemented feature) is backed by this record.
type History struct {
	lines []string
}

// Add appends line to the history.
func (h *History) Add(line string) {
	h.lines = append(h.lines, line)
}

// Len returns the number of recorded lines.
func (h *History) Len() int {
	return len(h.lines)
}

// At returns the line recorded at index i.
func (h *History) At(i int) string {
	return h.lines[i]
}

// All returns every recorded line, oldest first.
func (h *History) All() []string {
	return h.lines
}
