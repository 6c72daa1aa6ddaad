package httpx

import (
	"net/http"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	"github.com/Vignesh6104/sims-console/internal/guard"
)

// landingLinks lists what each role's home page links to.
var landingLinks = map[domainauth.Role][]Link{
	domainauth.RoleAdmin: {
		{Href: "/api/students/", Label: "Students"},
		{Href: "/api/class_rooms/", Label: "Class rooms"},
		{Href: "/api/subjects/", Label: "Subjects"},
		{Href: "/api/exams/", Label: "Exams"},
		{Href: "/api/fees/structures", Label: "Fee structures"},
		{Href: "/api/salaries/", Label: "Salaries"},
		{Href: "/api/assets/", Label: "Assets"},
		{Href: "/api/attendance/", Label: "Attendance"},
	},
	domainauth.RoleTeacher: {
		{Href: "/api/students/", Label: "Students"},
		{Href: "/api/class_rooms/", Label: "Class rooms"},
		{Href: "/api/subjects/", Label: "Subjects"},
		{Href: "/api/exams/", Label: "Exams"},
		{Href: "/api/attendance/", Label: "Attendance"},
	},
	domainauth.RoleParent: {
		{Href: "/api/parent/dashboard", Label: "Dashboard"},
		{Href: "/api/parents/my-children/", Label: "My children"},
		{Href: "/api/attendance/", Label: "Attendance"},
	},
	domainauth.RoleStudent: {
		{Href: "/api/attendance/", Label: "Attendance"},
	},
}

var landingTitles = map[domainauth.Role]string{
	domainauth.RoleAdmin:   "Administration",
	domainauth.RoleTeacher: "Teaching",
	domainauth.RoleParent:  "Parent overview",
	domainauth.RoleStudent: "My school day",
}

// PageHandlers serves the root redirect and the role landing pages.
type PageHandlers struct {
	Renderer *TemplateRenderer
	Guard    GuardConfig
}

// Home sends signed-in callers to their landing route and everyone else to sign in.
func (h *PageHandlers) Home(w http.ResponseWriter, r *http.Request) {
	if !h.Guard.enforce(w, r, guard.AnyRole) {
		return
	}
	navigate(w, r, domainauth.LandingRoute(SnapshotFromContext(r.Context()).Role))
}

// Landing renders the home page of role. Mount it behind Guard(guard.Roles(role)).
func (h *PageHandlers) Landing(role domainauth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Renderer.page(w, r, http.StatusOK, "landing", PageData{
			Title: landingTitles[role],
			Links: landingLinks[role],
		})
	}
}
