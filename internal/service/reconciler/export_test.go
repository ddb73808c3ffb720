package reconciler

const DepartedLimit = departedLimit

// Tracked reports how many rides r keeps revision counters and departures for.
func Tracked(r *Reconciler) (revisions, departed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.revisions), r.view.departed.len()
}
