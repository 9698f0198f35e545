// File: notify/registry_test.go
// License: Apache-2.0

package notify

import (
	"errors"
	"testing"

	"github.com/embedlink/eclink/protocol"
)

type captureConsumer struct {
	cmds []*protocol.Command
	data [][]byte
}

func (c *captureConsumer) HandleEvent(cmd *protocol.Command, data []byte) {
	c.cmds = append(c.cmds, cmd)
	c.data = append(c.data, data)
}

func TestRegistry_RelayRoundtrip(t *testing.T) {
	defer Unregister()

	cmd := &protocol.Command{Type: protocol.PayloadTypeCommand, RequestID: protocol.EventIDMin}

	if Relay(cmd, nil) {
		t.Error("Expected Relay to report false without a consumer")
	}

	c := &captureConsumer{}
	if err := Register(c); err != nil {
		t.Fatalf("Expected Register to succeed, got %v", err)
	}
	if !Relay(cmd, []byte("payload")) {
		t.Error("Expected Relay to report true with a consumer")
	}
	if len(c.cmds) != 1 || c.cmds[0] != cmd {
		t.Errorf("Expected one relayed event, got %d", len(c.cmds))
	}
	if string(c.data[0]) != "payload" {
		t.Errorf("Expected relayed data %q, got %q", "payload", c.data[0])
	}
}

func TestRegistry_SingleConsumer(t *testing.T) {
	defer Unregister()

	if err := Register(&captureConsumer{}); err != nil {
		t.Fatalf("Expected Register to succeed, got %v", err)
	}
	if err := Register(&captureConsumer{}); !errors.Is(err, ErrConsumerRegistered) {
		t.Errorf("Expected ErrConsumerRegistered, got %v", err)
	}

	Unregister()
	if err := Register(&captureConsumer{}); err != nil {
		t.Errorf("Expected Register to succeed after Unregister, got %v", err)
	}
}
