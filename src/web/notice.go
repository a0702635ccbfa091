package web

import "sync"

// Notice is the error line under the controls. It is either hidden or
// showing exactly one message.
type Notice struct {
	mu      sync.Mutex
	shown   bool
	message string
}

// Show displays msg, replacing whatever was shown.
func (n *Notice) Show(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = true
	n.message = msg
}

func (n *Notice) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = false
	n.message = ""
}

func (n *Notice) Current() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.message, n.shown
}
