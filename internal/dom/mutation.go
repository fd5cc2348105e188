package dom

import "golang.org/x/net/html"

// MutationRecord describes one structural change to the children of Target.
type MutationRecord struct {
	Target       *Element
	AddedNodes   []*html.Node
	RemovedNodes []*html.Node
}

// Observe registers fn to receive batches of mutation records. Records are
// accumulated and delivered through the document's Poster, so a burst of
// changes made within one task arrives as a single batch.
func (d *Document) Observe(fn func([]MutationRecord)) (cancel func()) {
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	return func() { delete(d.observers, id) }
}

func (d *Document) record(rec MutationRecord) {
	if len(d.observers) == 0 {
		return
	}
	d.pending = append(d.pending, rec)
	if d.flushQueued {
		return
	}
	d.flushQueued = true
	d.poster.Post(d.flushMutations)
}

func (d *Document) flushMutations() {
	records := d.pending
	d.pending = nil
	d.flushQueued = false
	if len(records) == 0 {
		return
	}
	for _, fn := range d.observers {
		fn(records)
	}
}

// HasAdditions reports whether any record inserted nodes.
func HasAdditions(records []MutationRecord) bool {
	for _, r := range records {
		if len(r.AddedNodes) > 0 {
			return true
		}
	}
	return false
}
