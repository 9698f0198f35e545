// File: notify/registry.go
// License: Apache-2.0
//
// Process-wide registry relaying unsolicited events to an optional
// secondary consumer. At most one consumer can be registered at a time.

package notify

import (
	"errors"
	"sync"

	"github.com/embedlink/eclink/protocol"
)

// Consumer receives relayed events.
type Consumer interface {
	HandleEvent(cmd *protocol.Command, data []byte)
}

// ErrConsumerRegistered is returned when a consumer is already present.
var ErrConsumerRegistered = errors.New("eclink: event consumer already registered")

var registry struct {
	mu       sync.RWMutex
	consumer Consumer
}

// Register installs the process-wide event consumer.
func Register(c Consumer) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.consumer != nil {
		return ErrConsumerRegistered
	}
	registry.consumer = c
	return nil
}

// Unregister removes the current consumer, if any.
func Unregister() {
	registry.mu.Lock()
	registry.consumer = nil
	registry.mu.Unlock()
}

// Relay hands an event to the registered consumer. Reports whether a
// consumer was present to receive it.
func Relay(cmd *protocol.Command, data []byte) bool {
	registry.mu.RLock()
	c := registry.consumer
	registry.mu.RUnlock()
	if c == nil {
		return false
	}
	c.HandleEvent(cmd, data)
	return true
}
