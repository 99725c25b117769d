package session

// Pager walks a fixed number of detections with "show all" as a regular stop.
//
// The cursor lives in [0, total]: 0 is the all-objects view and i in
// 1..total shows detection i-1. Next and Previous move circularly through
// total+1 states, so repeated Next visits all, 1, 2, ..., total, all, ... and
// Previous visits the same states in reverse. The zero value is a pager over
// zero detections.
type Pager struct {
	cursor int
	total  int
}

// NewPager returns a pager over total detections, showing all.
func NewPager(total int) *Pager {
	p := &Pager{}
	p.Reset(total)
	return p
}

// Reset installs a new total and returns to the all-objects view.
func (p *Pager) Reset(total int) {
	if total < 0 {
		total = 0
	}
	p.total = total
	p.cursor = 0
}

// Next advances one step, wrapping from the last detection to the all view.
func (p *Pager) Next() int {
	p.clamp()
	if p.total == 0 {
		return 0
	}
	p.cursor = (p.cursor + 1) % (p.total + 1)
	return p.cursor
}

// Previous steps back, wrapping from the all view to the last detection.
func (p *Pager) Previous() int {
	p.clamp()
	if p.total == 0 {
		return 0
	}
	p.cursor = (p.cursor - 1 + p.total + 1) % (p.total + 1)
	return p.cursor
}

// SetCursor jumps to a state. Values outside [0, total] select the all view.
func (p *Pager) SetCursor(cursor int) int {
	p.cursor = cursor
	p.clamp()
	return p.cursor
}

// Cursor returns the current state.
func (p *Pager) Cursor() int {
	p.clamp()
	return p.cursor
}

// Total returns the number of detections paged over.
func (p *Pager) Total() int {
	return p.total
}

// ShowingAll reports whether the all-objects view is current.
func (p *Pager) ShowingAll() bool {
	return p.Cursor() == 0
}

// Index returns the zero-based detection index for a single view.
func (p *Pager) Index() (int, bool) {
	c := p.Cursor()
	if c == 0 {
		return 0, false
	}
	return c - 1, true
}

// clamp resets an out-of-range cursor to the all view.
func (p *Pager) clamp() {
	if p.cursor < 0 || p.cursor > p.total {
		p.cursor = 0
	}
}
