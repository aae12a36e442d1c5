package model

import "net/url"

// NavigationRequest is one client page navigation as seen by the gate.
type NavigationRequest struct {
	URL    *url.URL
	Cookie string // raw Cookie header, empty if absent
}

// Action is what the gate tells the router to do with a navigation.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionRedirect Action = "redirect"
)

// Decision is the outcome of gating one navigation.
type Decision struct {
	Action   Action
	Location string // set only for ActionRedirect
}

// Allow continues to the requested path.
func Allow() Decision {
	return Decision{Action: ActionAllow}
}

// RedirectTo sends the client to location instead.
func RedirectTo(location string) Decision {
	return Decision{Action: ActionRedirect, Location: location}
}

// IsRedirect reports whether the decision redirects.
func (d Decision) IsRedirect() bool {
	return d.Action == ActionRedirect
}

// MockRule is one canned backend answer.
type MockRule struct {
	Name        string
	Method      string
	PathPattern string // "*" as first or last character matches any prefix/suffix
	Status      int
	Body        []byte // nil means an empty body
}
