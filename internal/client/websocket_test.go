// ABOUTME: Tests for the hub client
// ABOUTME: Connects real clients to a hub mounted on an httptest server
package client

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cuecast/cuecast-go/internal/server"
	"github.com/cuecast/cuecast-go/internal/store"
)

func startHub(t *testing.T) string {
	t.Helper()

	hub, err := server.New(server.Config{
		Name:    "Test Hub",
		DataDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("failed to create hub: %v", err)
	}

	ts := httptest.NewServer(hub.Handler())
	t.Cleanup(ts.Close)
	return strings.TrimPrefix(ts.URL, "http://")
}

func connect(t *testing.T, addr string, config Config) *Client {
	t.Helper()

	config.ServerAddr = addr
	c := NewClient(config)
	if err := c.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectAndHandshake(t *testing.T) {
	addr := startHub(t)

	c := connect(t, addr, Config{ParticipantID: "p1", Name: "Alice", Role: "operator"})
	if !c.IsConnected() {
		t.Error("client should be connected after handshake")
	}
}

func TestDuplicateIdentityRejected(t *testing.T) {
	addr := startHub(t)

	connect(t, addr, Config{ParticipantID: "p1", Name: "Alice"})

	dup := NewClient(Config{ServerAddr: addr, ParticipantID: "p1", Name: "Impostor"})
	err := dup.Connect()
	if err == nil {
		dup.Close()
		t.Fatal("duplicate identity should be rejected")
	}
	if !strings.Contains(err.Error(), "already connected") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRosterTracksJoins(t *testing.T) {
	addr := startHub(t)

	a := connect(t, addr, Config{ParticipantID: "p1", Name: "Alice", Role: "operator"})
	connect(t, addr, Config{
		ParticipantID: "p2",
		Name:          "Bob",
		Persona:       "Storm Herald",
		Ownership:     map[string]int{"Storm Herald": 3},
	})

	waitFor(t, func() bool {
		return len(a.Roster().Participants()) == 2
	}, "roster to reach both participants")

	participants := a.Roster().Participants()
	if participants[0].ID != "p1" || participants[1].ID != "p2" {
		t.Errorf("join order not preserved: %+v", participants)
	}
	if participants[1].Persona != "Storm Herald" {
		t.Errorf("persona lost: %+v", participants[1])
	}
	if participants[1].OwnershipLevel("Storm Herald") != 3 {
		t.Errorf("ownership lost: %+v", participants[1])
	}
}

func TestBroadcastIsSelfDelivering(t *testing.T) {
	addr := startHub(t)

	a := connect(t, addr, Config{ParticipantID: "p1", Name: "Alice"})
	b := connect(t, addr, Config{ParticipantID: "p2", Name: "Bob"})

	type received struct {
		origin  string
		payload string
	}
	gotA := make(chan received, 1)
	gotB := make(chan received, 1)

	a.Subscribe("cuecast/audio", func(origin string, payload []byte) {
		gotA <- received{origin, string(payload)}
	})
	b.Subscribe("cuecast/audio", func(origin string, payload []byte) {
		gotB <- received{origin, string(payload)}
	})

	if err := a.Broadcast("cuecast/audio", []byte(`{"action":"play"}`)); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	for name, ch := range map[string]chan received{"sender": gotA, "other": gotB} {
		select {
		case r := <-ch:
			if r.origin != "p1" {
				t.Errorf("%s: wrong origin %s", name, r.origin)
			}
			if r.payload != `{"action":"play"}` {
				t.Errorf("%s: wrong payload %s", name, r.payload)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s never received the broadcast", name)
		}
	}
}

func TestRemoteAttributes(t *testing.T) {
	addr := startHub(t)

	c := connect(t, addr, Config{ParticipantID: "p1", Name: "Alice"})

	// Absent read
	_, version, found, err := c.Get("Storm Herald", "audioFiles")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found || version != 0 {
		t.Fatalf("expected absent attribute, got found=%v version=%d", found, version)
	}

	// Write at version 0, read back
	if err := c.Set("Storm Herald", "audioFiles", []byte(`["a"]`), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	value, version, found, err := c.Get("Storm Herald", "audioFiles")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found || version != 1 || string(value) != `["a"]` {
		t.Fatalf("unexpected read-back: found=%v version=%d value=%s", found, version, value)
	}

	// Stale write surfaces the conflict sentinel for retry loops
	err = c.Set("Storm Herald", "audioFiles", []byte(`["b"]`), 0)
	if err != store.ErrVersionConflict {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func TestCloseDisconnects(t *testing.T) {
	addr := startHub(t)

	c := connect(t, addr, Config{ParticipantID: "p1", Name: "Alice"})
	c.Close()

	if c.IsConnected() {
		t.Error("client should report disconnected after Close")
	}
	if err := c.Broadcast("cuecast/audio", []byte(`{}`)); err == nil {
		t.Error("broadcast after close should fail")
	}
}
