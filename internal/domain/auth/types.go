package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents a console user's authorization role as issued by the SIMS backend.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
	RoleStudent Role = "student"
)

// Navigation targets the console ever redirects to.
const (
	LoginRoute  = "/login"
	AdminHome   = "/admin"
	TeacherHome = "/teacher"
	ParentHome  = "/parent"
	StudentHome = "/student"
)

// ParseRole normalizes a raw role string. Unknown values yield ok=false.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if r.Valid() {
		return r, true
	}
	return "", false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleParent, RoleStudent:
		return true
	default:
		return false
	}
}

// LandingRoute returns the home route for the role, or LoginRoute when the role is unrecognized.
func LandingRoute(r Role) string {
	switch r {
	case RoleAdmin:
		return AdminHome
	case RoleTeacher:
		return TeacherHome
	case RoleParent:
		return ParentHome
	case RoleStudent:
		return StudentHome
	default:
		return LoginRoute
	}
}

// Session is the server-side record we persist for a signed-in console user.
// ID is an opaque session identifier carried in the session cookie.
// The two tokens are opaque to the console; Role and UserID are derived at login.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Role         Role      `json:"role,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Authenticated returns true when the session carries an access token.
func (s Session) Authenticated() bool { return s.AccessToken != "" }
