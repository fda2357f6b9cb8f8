// ABOUTME: Participant-side command wiring
// ABOUTME: Binds addressed dispatch commands to the local playback slot
package app

import (
	"github.com/cuecast/cuecast-go/internal/dispatch"
	"github.com/cuecast/cuecast-go/internal/notify"
	"github.com/cuecast/cuecast-go/internal/playback"
	"github.com/cuecast/cuecast-go/internal/protocol"
)

// Participant reacts to dispatch commands addressed to this process.
// Outcomes stay local: a failed or succeeded playback is reported to
// the participant's notifier, never back to the commanding operator.
type Participant struct {
	controller *playback.Controller
	notifier   notify.Notifier
}

// NewParticipant wires the playback controller to the dispatch channel
func NewParticipant(channel *dispatch.Channel, controller *playback.Controller, notifier notify.Notifier) *Participant {
	p := &Participant{
		controller: controller,
		notifier:   notifier,
	}
	channel.OnCommand(p.handleCommand)
	return p
}

func (p *Participant) handleCommand(cmd protocol.DispatchCommand) {
	switch cmd.Action {
	case protocol.ActionPlay:
		p.handlePlay(cmd)
	case protocol.ActionStop:
		p.handleStop()
	}
}

// handlePlay starts the asset, replacing whatever the slot held
func (p *Participant) handlePlay(cmd protocol.DispatchCommand) {
	if err := p.controller.Play(cmd.AssetLocation, cmd.Volume); err != nil {
		p.notifier.Error("Could not play %s: %v", cmd.AssetName, err)
		return
	}

	if cmd.EntityLabel != "" {
		p.notifier.Info("Playing %s (from %s)", cmd.AssetName, cmd.EntityLabel)
	} else {
		p.notifier.Info("Playing %s", cmd.AssetName)
	}
}

// handleStop releases the slot. The notification only fires when
// something was actually playing.
func (p *Participant) handleStop() {
	if p.controller.Stop() {
		p.notifier.Info("Audio stopped by operator")
	}
}
