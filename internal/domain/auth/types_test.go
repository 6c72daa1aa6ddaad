package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"admin", RoleAdmin, true},
		{" Teacher ", RoleTeacher, true},
		{"PARENT", RoleParent, true},
		{"student", RoleStudent, true},
		{"janitor", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLandingRoute(t *testing.T) {
	assert.Equal(t, "/admin", LandingRoute(RoleAdmin))
	assert.Equal(t, "/teacher", LandingRoute(RoleTeacher))
	assert.Equal(t, "/parent", LandingRoute(RoleParent))
	assert.Equal(t, "/student", LandingRoute(RoleStudent))
	assert.Equal(t, LoginRoute, LandingRoute(Role("principal")))
	assert.Equal(t, LoginRoute, LandingRoute(""))
}

func TestSessionAuthenticated(t *testing.T) {
	assert.False(t, Session{}.Authenticated())
	assert.True(t, Session{AccessToken: "T1"}.Authenticated())
}
