// ABOUTME: Connected participant roster with roles and ownership levels
// ABOUTME: Authorization/session collaborator consumed by the resolver
package session

import (
	"sync"

	"github.com/cuecast/cuecast-go/internal/protocol"
)

// Participant roles
const (
	RoleOperator = "operator"
	RolePlayer   = "player"
)

// Ownership levels an entity can grant a participant
const (
	OwnershipNone     = 0
	OwnershipLimited  = 1
	OwnershipObserver = 2
	OwnershipOwner    = 3
)

// Participant is one connected user session
type Participant struct {
	ID        string
	Name      string
	Role      string
	Persona   string         // entity designated as this participant's primary persona
	Ownership map[string]int // entity -> ownership level
}

// IsOperator reports whether the participant holds the operator role
func (p Participant) IsOperator() bool {
	return p.Role == RoleOperator
}

// OwnershipLevel returns the participant's level on the given entity
func (p Participant) OwnershipLevel(entity string) int {
	if p.Ownership == nil {
		return OwnershipNone
	}
	return p.Ownership[entity]
}

// Roster tracks connected participants in join order. Enumeration
// order is stable for the lifetime of a connection, which is what
// makes first-match recipient resolution deterministic.
type Roster struct {
	mu           sync.RWMutex
	participants []Participant
}

// NewRoster creates an empty roster
func NewRoster() *Roster {
	return &Roster{}
}

// Participants returns a snapshot in join order
func (r *Roster) Participants() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

// Lookup finds a participant by ID
func (r *Roster) Lookup(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// Add registers a participant, replacing any prior entry with the same
// ID in place so join order is preserved across reconnects
func (r *Roster) Add(p Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.participants {
		if existing.ID == p.ID {
			r.participants[i] = p
			return
		}
	}
	r.participants = append(r.participants, p)
}

// Remove drops a participant by ID
func (r *Roster) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.participants {
		if p.ID == id {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			return
		}
	}
}

// Replace swaps the entire roster, used when the hub pushes a
// roster/update snapshot
func (r *Roster) Replace(participants []Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.participants = make([]Participant, len(participants))
	copy(r.participants, participants)
}

// FromProtocol converts a wire participant to a session participant
func FromProtocol(p protocol.Participant) Participant {
	return Participant{
		ID:        p.ID,
		Name:      p.Name,
		Role:      p.Role,
		Persona:   p.Persona,
		Ownership: p.Ownership,
	}
}

// ToProtocol converts a session participant to its wire shape
func ToProtocol(p Participant) protocol.Participant {
	return protocol.Participant{
		ID:        p.ID,
		Name:      p.Name,
		Role:      p.Role,
		Persona:   p.Persona,
		Ownership: p.Ownership,
	}
}
