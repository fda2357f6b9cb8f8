// ABOUTME: Tests for the participant roster
// ABOUTME: Covers join order, reconnect replacement, and removal
package session

import "testing"

func TestRosterJoinOrder(t *testing.T) {
	r := NewRoster()
	r.Add(Participant{ID: "p1", Name: "Alice"})
	r.Add(Participant{ID: "p2", Name: "Bob"})
	r.Add(Participant{ID: "p3", Name: "Cleo"})

	got := r.Participants()
	if len(got) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(got))
	}
	for i, id := range []string{"p1", "p2", "p3"} {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestRosterReconnectKeepsOrder(t *testing.T) {
	r := NewRoster()
	r.Add(Participant{ID: "p1", Name: "Alice"})
	r.Add(Participant{ID: "p2", Name: "Bob"})

	// p1 reconnects with a new persona
	r.Add(Participant{ID: "p1", Name: "Alice", Persona: "Aria"})

	got := r.Participants()
	if got[0].ID != "p1" || got[0].Persona != "Aria" {
		t.Errorf("expected p1 updated in place, got %+v", got[0])
	}
	if got[1].ID != "p2" {
		t.Errorf("expected p2 to keep its position, got %+v", got[1])
	}
}

func TestRosterRemove(t *testing.T) {
	r := NewRoster()
	r.Add(Participant{ID: "p1"})
	r.Add(Participant{ID: "p2"})

	r.Remove("p1")

	if _, ok := r.Lookup("p1"); ok {
		t.Error("p1 should be gone")
	}
	if _, ok := r.Lookup("p2"); !ok {
		t.Error("p2 should remain")
	}

	// Removing an unknown ID is a no-op
	r.Remove("p9")
	if len(r.Participants()) != 1 {
		t.Error("remove of unknown ID must not change the roster")
	}
}

func TestOwnershipLevel(t *testing.T) {
	p := Participant{Ownership: map[string]int{"Aria": OwnershipOwner}}

	if p.OwnershipLevel("Aria") != OwnershipOwner {
		t.Error("expected owner level on Aria")
	}
	if p.OwnershipLevel("Ghost") != OwnershipNone {
		t.Error("expected no ownership on Ghost")
	}

	var none Participant
	if none.OwnershipLevel("Aria") != OwnershipNone {
		t.Error("nil ownership map should read as none")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := NewRoster()
	r.Add(Participant{ID: "p1"})

	snap := r.Participants()
	snap[0].ID = "mutated"

	if got, _ := r.Lookup("p1"); got.ID != "p1" {
		t.Error("mutating a snapshot must not affect the roster")
	}
}
