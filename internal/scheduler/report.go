package scheduler

import "github.com/vk/ironrun/internal/unit"

// Report is the outcome of one document run.
type Report struct {
	Document string
	Units    []*unit.Unit
}

// Count returns how many units ended in status.
func (r *Report) Count(status unit.Status) int {
	n := 0
	for _, u := range r.Units {
		if u.Status() == status {
			n++
		}
	}
	return n
}

// Failed returns the units that failed, in document order.
func (r *Report) Failed() []*unit.Unit {
	var out []*unit.Unit
	for _, u := range r.Units {
		if u.Status() == unit.Failed {
			out = append(out, u)
		}
	}
	return out
}
