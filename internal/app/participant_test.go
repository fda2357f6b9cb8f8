// ABOUTME: Tests for the participant-side command wiring
// ABOUTME: Exercises play/stop commands arriving over the dispatch channel
package app

import (
	"errors"
	"testing"

	"github.com/cuecast/cuecast-go/internal/dispatch"
	"github.com/cuecast/cuecast-go/internal/notify"
	"github.com/cuecast/cuecast-go/internal/playback"
	"github.com/cuecast/cuecast-go/internal/protocol"
)

type fixture struct {
	bus        *dispatch.MemoryBus
	operator   *dispatch.Channel
	acquirer   *playback.MockAcquirer
	controller *playback.Controller
	notifier   *notify.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	bus := dispatch.NewMemoryBus()
	operator := dispatch.New(bus.Endpoint("operator-1"), "operator-1")

	acquirer := playback.NewMockAcquirer()
	controller := playback.NewController(acquirer)
	notifier := notify.NewMemory()

	channel := dispatch.New(bus.Endpoint("player-1"), "player-1")
	NewParticipant(channel, controller, notifier)

	return &fixture{
		bus:        bus,
		operator:   operator,
		acquirer:   acquirer,
		controller: controller,
		notifier:   notifier,
	}
}

func TestPlayCommandStartsPlayback(t *testing.T) {
	f := newFixture(t)

	err := f.operator.Send(protocol.DispatchCommand{
		Action:              protocol.ActionPlay,
		TargetParticipantID: "player-1",
		AssetName:           "thunder.mp3",
		AssetLocation:       "/audio/thunder.mp3",
		EntityLabel:         "Storm Herald",
		Volume:              0.5,
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	handles := f.acquirer.Handles()
	if len(handles) != 1 {
		t.Fatalf("expected 1 acquisition, got %d", len(handles))
	}
	if handles[0].Location != "/audio/thunder.mp3" {
		t.Errorf("wrong location: %s", handles[0].Location)
	}
	if handles[0].Volume != 0.5 {
		t.Errorf("wrong volume: %v", handles[0].Volume)
	}

	if len(f.notifier.Infos) != 1 {
		t.Fatalf("expected 1 info notification, got %d", len(f.notifier.Infos))
	}
	if f.notifier.Infos[0] != "Playing thunder.mp3 (from Storm Herald)" {
		t.Errorf("unexpected notification: %q", f.notifier.Infos[0])
	}
}

func TestPlayWithoutEntityLabel(t *testing.T) {
	f := newFixture(t)

	f.operator.Send(protocol.DispatchCommand{
		Action:              protocol.ActionPlay,
		TargetParticipantID: "player-1",
		AssetName:           "bell.wav",
		AssetLocation:       "/audio/bell.wav",
		Volume:              0.5,
	})

	if len(f.notifier.Infos) != 1 {
		t.Fatalf("expected 1 info notification, got %d", len(f.notifier.Infos))
	}
	if f.notifier.Infos[0] != "Playing bell.wav" {
		t.Errorf("unexpected notification: %q", f.notifier.Infos[0])
	}
}

func TestPlayFailureStaysLocal(t *testing.T) {
	f := newFixture(t)
	f.acquirer.FailWith(errors.New("device denied"))

	err := f.operator.Send(protocol.DispatchCommand{
		Action:              protocol.ActionPlay,
		TargetParticipantID: "player-1",
		AssetName:           "bell.wav",
		AssetLocation:       "/audio/bell.wav",
	})
	if err != nil {
		t.Fatalf("send must not surface the recipient's failure: %v", err)
	}

	if f.controller.State() != playback.StateIdle {
		t.Error("slot should be idle after a failed acquisition")
	}
	if len(f.notifier.Errors) != 1 {
		t.Fatalf("expected 1 error notification, got %d", len(f.notifier.Errors))
	}
	if len(f.notifier.Infos) != 0 {
		t.Errorf("no success notification expected, got %v", f.notifier.Infos)
	}
}

func TestStopWhilePlayingNotifies(t *testing.T) {
	f := newFixture(t)

	f.operator.Send(protocol.DispatchCommand{
		Action:              protocol.ActionPlay,
		TargetParticipantID: "player-1",
		AssetName:           "drone.flac",
		AssetLocation:       "/audio/drone.flac",
	})
	f.operator.Send(protocol.DispatchCommand{
		Action:              protocol.ActionStop,
		TargetParticipantID: "player-1",
	})

	handles := f.acquirer.Handles()
	if len(handles) != 1 || !handles[0].Stopped() {
		t.Fatal("expected the active handle to be stopped")
	}

	found := false
	for _, info := range f.notifier.Infos {
		if info == "Audio stopped by operator" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing stop notification, got %v", f.notifier.Infos)
	}
}

func TestStopWhileIdleIsSilent(t *testing.T) {
	f := newFixture(t)

	f.operator.Send(protocol.DispatchCommand{
		Action:              protocol.ActionStop,
		TargetParticipantID: "player-1",
	})

	if len(f.notifier.Infos) != 0 {
		t.Errorf("idle stop must not notify, got %v", f.notifier.Infos)
	}
}

func TestCommandForOtherTargetIgnored(t *testing.T) {
	f := newFixture(t)

	f.operator.Send(protocol.DispatchCommand{
		Action:              protocol.ActionPlay,
		TargetParticipantID: "player-2",
		AssetName:           "bell.wav",
		AssetLocation:       "/audio/bell.wav",
	})

	if len(f.acquirer.Handles()) != 0 {
		t.Error("command for another target must not reach the controller")
	}
	if len(f.notifier.Infos) != 0 {
		t.Errorf("no notification expected, got %v", f.notifier.Infos)
	}
}
