package authz

// Subject is the authenticated principal a decision is being made for.
// Usually derived from a verified session token, see the auth package.
type Subject struct {
	// ID is the stable user identifier, used for ownership comparisons.
	ID string

	// Roles currently assigned to the subject. Decisions derive from this
	// snapshot on every call, so a revoked role stops granting access as soon
	// as the subject is rebuilt from source of truth.
	Roles []Role

	// Authenticated distinguishes a signed-in subject from a guest. A subject
	// with roles but Authenticated false is treated as a guest.
	Authenticated bool
}

// Guest returns the anonymous subject: no identity, no roles.
func Guest() Subject {
	return Subject{}
}

// HasRole reports whether the subject holds the given role.
func (s Subject) HasRole(r Role) bool {
	for _, role := range s.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the subject holds at least one of the given
// roles.
func (s Subject) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if s.HasRole(r) {
			return true
		}
	}
	return false
}
