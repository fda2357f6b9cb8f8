// ABOUTME: Operator-facing control surface for targeted audio dispatch
// ABOUTME: Composes registry lookup, recipient resolution, and send
package control

import (
	"fmt"

	"github.com/cuecast/cuecast-go/internal/dispatch"
	"github.com/cuecast/cuecast-go/internal/notify"
	"github.com/cuecast/cuecast-go/internal/protocol"
	"github.com/cuecast/cuecast-go/internal/registry"
	"github.com/cuecast/cuecast-go/internal/resolver"
)

// Surface composes and submits dispatch commands. Restricting its use
// to the operator role is the session collaborator's job; the surface
// assumes its caller is already authorized.
type Surface struct {
	registry *registry.Registry
	roster   resolver.RosterView
	channel  *dispatch.Channel
	notifier notify.Notifier
	volume   float64
}

// New creates a control surface. volume is the default playback volume
// carried in play commands (0.0 to 1.0).
func New(reg *registry.Registry, roster resolver.RosterView, channel *dispatch.Channel, notifier notify.Notifier, volume float64) *Surface {
	return &Surface{
		registry: reg,
		roster:   roster,
		channel:  channel,
		notifier: notifier,
		volume:   volume,
	}
}

// TriggerPlayback looks up the asset, resolves the one recipient for
// the entity, and dispatches a play command. A missing recipient is
// reported locally and nothing is sent.
func (s *Surface) TriggerPlayback(entity, assetName string) error {
	record, err := s.registry.Find(entity, assetName)
	if err != nil {
		s.notifier.Error("Cannot play %q: %v", assetName, err)
		return err
	}

	recipient, ok := resolver.Resolve(s.roster, entity)
	if !ok {
		s.notifier.Warn("No player found for %s", entity)
		return nil
	}

	cmd := protocol.DispatchCommand{
		Action:              protocol.ActionPlay,
		TargetParticipantID: recipient.ID,
		AssetID:             record.ID,
		AssetName:           record.Name,
		AssetLocation:       record.Location,
		EntityLabel:         entity,
		Volume:              s.volume,
	}

	if err := s.channel.Send(cmd); err != nil {
		s.notifier.Error("Failed to dispatch %q: %v", assetName, err)
		return fmt.Errorf("dispatch failed: %w", err)
	}

	s.notifier.Info("Playing %q for %s (%s)", record.Name, recipient.Name, entity)
	return nil
}

// TriggerStop resolves the entity's recipient and dispatches a stop
// command at them
func (s *Surface) TriggerStop(entity string) error {
	recipient, ok := resolver.Resolve(s.roster, entity)
	if !ok {
		s.notifier.Warn("No player found for %s", entity)
		return nil
	}

	cmd := protocol.DispatchCommand{
		Action:              protocol.ActionStop,
		TargetParticipantID: recipient.ID,
	}

	if err := s.channel.Send(cmd); err != nil {
		s.notifier.Error("Failed to dispatch stop for %s: %v", entity, err)
		return fmt.Errorf("dispatch failed: %w", err)
	}

	s.notifier.Info("Stopped audio for %s (%s)", recipient.Name, entity)
	return nil
}
