// ABOUTME: Ownership resolution from entity to the one authorized recipient
// ABOUTME: Scans the roster for persona match or owner-level permission
package resolver

import "github.com/cuecast/cuecast-go/internal/session"

// RosterView is the read-only slice of the session collaborator the
// resolver needs
type RosterView interface {
	Participants() []session.Participant
}

// Resolve returns the single connected participant authorized to
// receive audio meant for the entity: either the entity is their
// designated persona, or they hold the owner permission level on it.
// First match in roster enumeration order wins; only one recipient is
// ever addressed even when several qualify. The second return is false
// when no connected participant qualifies — a reportable outcome, not
// an error.
func Resolve(roster RosterView, entity string) (session.Participant, bool) {
	for _, p := range roster.Participants() {
		if p.Persona == entity && entity != "" {
			return p, true
		}
		if p.OwnershipLevel(entity) >= session.OwnershipOwner {
			return p, true
		}
	}
	return session.Participant{}, false
}
