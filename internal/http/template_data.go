package httpx

import (
	"github.com/Vignesh6104/sims-console/internal/session"
	"github.com/Vignesh6104/sims-console/internal/validation"
)

// PageData is the view model shared by every console page.
type PageData struct {
	Title     string
	Session   session.Snapshot
	CSRFToken string
	Error     string
	Notice    string

	// Form echoes submitted values back into the form; Fields holds per-field messages.
	Form   map[string]string
	Fields validation.FieldErrors

	RedirectURI string
	Done        bool
	Links       []Link
	RetryAfter  int
}

// Link is one navigation entry on a landing page.
type Link struct {
	Href  string
	Label string
}
