// ABOUTME: Addressed dispatch channel over the broadcast transport
// ABOUTME: Every process hears every command; only the target acts
package dispatch

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/cuecast/cuecast-go/internal/protocol"
)

// ChannelName is the well-known broadcast channel carrying dispatch
// commands for this subsystem.
const ChannelName = "cuecast/audio"

// Transport is the broadcast primitive the channel is built on. Send
// is fire-and-forget; Subscribe delivers every payload broadcast on
// the named channel, the local process's own included.
type Transport interface {
	Broadcast(channel string, payload []byte) error
	Subscribe(channel string, handler func(origin string, payload []byte))
}

// Channel sends and receives addressed dispatch commands. The
// filtering contract lives here: a received command is handed to the
// application only when its target matches the local identity, which
// also keeps a process from acting on its own broadcast unless it is
// the target.
type Channel struct {
	transport Transport
	selfID    string
}

// New creates a dispatch channel bound to the local participant identity
func New(transport Transport, selfID string) *Channel {
	return &Channel{transport: transport, selfID: selfID}
}

// Send broadcasts the command to all connected processes. There is no
// delivery confirmation and no retry; a transport failure surfaces to
// the sender only.
func (c *Channel) Send(cmd protocol.DispatchCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode dispatch command: %w", err)
	}
	if err := c.transport.Broadcast(ChannelName, payload); err != nil {
		return fmt.Errorf("failed to broadcast dispatch command: %w", err)
	}
	return nil
}

// OnCommand registers the handler for commands addressed to this
// process. Commands for other targets are silently discarded.
func (c *Channel) OnCommand(handler func(protocol.DispatchCommand)) {
	c.transport.Subscribe(ChannelName, func(origin string, payload []byte) {
		var cmd protocol.DispatchCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			log.Printf("Discarding malformed dispatch command from %s: %v", origin, err)
			return
		}

		if cmd.TargetParticipantID != c.selfID {
			return
		}

		switch cmd.Action {
		case protocol.ActionPlay, protocol.ActionStop:
			handler(cmd)
		default:
			log.Printf("Unknown dispatch action: %s", cmd.Action)
		}
	})
}
