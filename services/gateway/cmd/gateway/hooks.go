package main

import "sync"

// cleanupHooks collects shutdown work that must run before os.Exit,
// which skips deferred calls.
type cleanupHooks struct {
	mu   sync.Mutex
	fns  []func()
	done bool
}

func (h *cleanupHooks) add(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

// run calls the hooks in reverse order of registration, at most once.
func (h *cleanupHooks) run() {
	h.mu.Lock()
	fns := h.fns
	if h.done {
		fns = nil
	}
	h.done = true
	h.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
