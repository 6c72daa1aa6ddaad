package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
)

func TestEvaluate(t *testing.T) {
	adminOnly := Roles(domainauth.RoleAdmin)

	tests := []struct {
		name   string
		in     Input
		policy Policy
		want   Decision
	}{
		{
			name:   "loading waits without redirect",
			in:     Input{Loading: true},
			policy: adminOnly,
			want:   Decision{Outcome: OutcomeWait},
		},
		{
			name:   "loading waits even with a token",
			in:     Input{Loading: true, Token: "T1", Role: domainauth.RoleTeacher},
			policy: adminOnly,
			want:   Decision{Outcome: OutcomeWait},
		},
		{
			name:   "no token redirects to login",
			in:     Input{},
			policy: adminOnly,
			want:   Decision{Outcome: OutcomeRedirect, Target: "/login", Reason: ReasonUnauthenticated},
		},
		{
			name:   "no token redirects to login on unrestricted routes",
			in:     Input{Role: domainauth.RoleAdmin},
			policy: AnyRole,
			want:   Decision{Outcome: OutcomeRedirect, Target: "/login", Reason: ReasonUnauthenticated},
		},
		{
			name:   "allowed role renders",
			in:     Input{Token: "T1", Role: domainauth.RoleAdmin},
			policy: adminOnly,
			want:   Decision{Outcome: OutcomeRender},
		},
		{
			name:   "unrestricted route renders for any role",
			in:     Input{Token: "T1", Role: domainauth.RoleStudent},
			policy: AnyRole,
			want:   Decision{Outcome: OutcomeRender},
		},
		{
			name:   "teacher on admin route goes to teacher landing",
			in:     Input{Token: "T1", Role: domainauth.RoleTeacher},
			policy: adminOnly,
			want:   Decision{Outcome: OutcomeRedirect, Target: "/teacher", Reason: ReasonForbidden},
		},
		{
			name:   "parent on admin route goes to parent landing",
			in:     Input{Token: "T1", Role: domainauth.RoleParent},
			policy: adminOnly,
			want:   Decision{Outcome: OutcomeRedirect, Target: "/parent", Reason: ReasonForbidden},
		},
		{
			name:   "student on teacher route goes to student landing",
			in:     Input{Token: "T1", Role: domainauth.RoleStudent},
			policy: Roles(domainauth.RoleTeacher),
			want:   Decision{Outcome: OutcomeRedirect, Target: "/student", Reason: ReasonForbidden},
		},
		{
			name:   "admin on parent route goes to admin landing",
			in:     Input{Token: "T1", Role: domainauth.RoleAdmin},
			policy: Roles(domainauth.RoleParent),
			want:   Decision{Outcome: OutcomeRedirect, Target: "/admin", Reason: ReasonForbidden},
		},
		{
			name:   "unknown role goes to login",
			in:     Input{Token: "T1", Role: domainauth.Role("janitor")},
			policy: adminOnly,
			want:   Decision{Outcome: OutcomeRedirect, Target: "/login", Reason: ReasonForbidden},
		},
		{
			name:   "missing role goes to login",
			in:     Input{Token: "T1"},
			policy: adminOnly,
			want:   Decision{Outcome: OutcomeRedirect, Target: "/login", Reason: ReasonForbidden},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.in, tt.policy))
		})
	}
}

func TestEvaluate_IsStable(t *testing.T) {
	in := Input{Token: "T1", Role: domainauth.RoleTeacher}
	p := Roles(domainauth.RoleAdmin, domainauth.RoleTeacher)

	first := Evaluate(in, p)
	for range 3 {
		assert.Equal(t, first, Evaluate(in, p))
	}
}

func TestPolicy_Permits(t *testing.T) {
	p := Roles(domainauth.RoleAdmin, domainauth.RoleTeacher)
	assert.True(t, p.Permits(domainauth.RoleAdmin))
	assert.True(t, p.Permits(domainauth.RoleTeacher))
	assert.False(t, p.Permits(domainauth.RoleParent))
	assert.False(t, p.Permits(""))
	assert.True(t, AnyRole.Permits(domainauth.RoleStudent))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "wait", OutcomeWait.String())
	assert.Equal(t, "redirect", OutcomeRedirect.String())
	assert.Equal(t, "render", OutcomeRender.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
