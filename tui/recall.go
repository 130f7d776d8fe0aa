// Package tui provides a Bubble Tea terminal UI for the DiceLab engine.
package tui

// recall keeps the most recent submitted command lines for Up/Down.
// Stepping back from the prompt stashes the half-typed line so stepping
// forward past the newest entry gives it back.
type recall struct {
	lines []string
	limit int
	pos   int // index into lines while browsing, len(lines) at the prompt
	draft string
}

func newRecall(limit int) *recall {
	return &recall{lines: make([]string, 0, limit), limit: limit}
}

// add records a submitted line and returns to the prompt. Repeating the
// previous line does not add a second copy.
func (r *recall) add(line string) {
	if n := len(r.lines); n == 0 || r.lines[n-1] != line {
		r.lines = append(r.lines, line)
		if len(r.lines) > r.limit {
			r.lines = r.lines[len(r.lines)-r.limit:]
		}
	}
	r.pos = len(r.lines)
	r.draft = ""
}

func (r *recall) browsing() bool { return r.pos < len(r.lines) }

// older steps back one line. current is what the prompt holds now and is
// kept as the draft when browsing starts. The oldest line repeats once
// reached. ok is false with nothing recorded.
func (r *recall) older(current string) (line string, ok bool) {
	if len(r.lines) == 0 {
		return "", false
	}
	if !r.browsing() {
		r.draft = current
	}
	if r.pos > 0 {
		r.pos--
	}
	return r.lines[r.pos], true
}

// newer steps forward one line, handing back the draft after the newest.
// ok is false when the prompt is not browsing.
func (r *recall) newer() (line string, ok bool) {
	if !r.browsing() {
		return "", false
	}
	r.pos++
	if r.pos == len(r.lines) {
		return r.draft, true
	}
	return r.lines[r.pos], true
}
