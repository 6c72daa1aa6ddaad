// Package guard decides what to do with a request for a protected route
// given the caller's session state.
package guard

import (
	"slices"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
)

// Outcome is the kind of decision the guard made.
type Outcome int

const (
	// OutcomeWait means session state is still loading; render neither the page nor a redirect.
	OutcomeWait Outcome = iota
	// OutcomeRedirect means navigate to Decision.Target.
	OutcomeRedirect
	// OutcomeRender means the protected page may render.
	OutcomeRender
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWait:
		return "wait"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeRender:
		return "render"
	default:
		return "unknown"
	}
}

// Reason explains a redirect.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonForbidden       Reason = "forbidden"
)

// Input is the session snapshot the guard evaluates.
type Input struct {
	Loading bool
	Token   string
	Role    domainauth.Role
}

// Policy restricts a route to a set of roles. An empty Allowed set admits any signed-in role.
type Policy struct {
	Allowed []domainauth.Role
}

// AnyRole admits every signed-in user.
var AnyRole = Policy{}

// Roles builds a Policy admitting only the given roles.
func Roles(roles ...domainauth.Role) Policy {
	return Policy{Allowed: roles}
}

// Permits reports whether role satisfies the policy.
func (p Policy) Permits(role domainauth.Role) bool {
	return len(p.Allowed) == 0 || slices.Contains(p.Allowed, role)
}

// Decision is the result of Evaluate. Target is set only for OutcomeRedirect.
type Decision struct {
	Outcome Outcome
	Target  string
	Reason  Reason
}

// Evaluate applies the guard rules in order: loading waits, a missing token goes to login,
// a permitted role renders, and any other role goes to its own landing route
// (or to login when the role is not recognized).
func Evaluate(in Input, p Policy) Decision {
	if in.Loading {
		return Decision{Outcome: OutcomeWait}
	}
	if in.Token == "" {
		return Decision{Outcome: OutcomeRedirect, Target: domainauth.LoginRoute, Reason: ReasonUnauthenticated}
	}
	if p.Permits(in.Role) {
		return Decision{Outcome: OutcomeRender}
	}
	return Decision{Outcome: OutcomeRedirect, Target: domainauth.LandingRoute(in.Role), Reason: ReasonForbidden}
}
