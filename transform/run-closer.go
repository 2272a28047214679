package transform

import (
	"sync"
)

// RunCloser tracks the channel used to report run status and whether it is closed.
type RunCloser struct {
	closed     bool
	mu         sync.Mutex
	chanStatus chan RunStatus
}

func NewRunCloser(chanStatus chan RunStatus) *RunCloser {
	return &RunCloser{chanStatus: chanStatus}
}

// Send reports status unless the channel is already closed.
func (c *RunCloser) Send(status RunStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.chanStatus <- status
	}
}

// CloseChannels closes chanStatus inside a mutex after sending statusToSend, if there is one.
// Only the first call has any effect.
func (c *RunCloser) CloseChannels(statusToSend *RunStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if statusToSend != nil { // if we have something to send...
		c.chanStatus <- *statusToSend
	}
	close(c.chanStatus) // causes the status consumer to exit.
	c.closed = true
}

// ChannelsAreOpen returns true until CloseChannels is called.
func (c *RunCloser) ChannelsAreOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}
