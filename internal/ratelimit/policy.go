package ratelimit

import "time"

// Policy describes one admission window. Policies are immutable and defined
// at startup; they are not user-configurable at runtime.
type Policy struct {
	Name        string
	MaxRequests int64
	Window      time.Duration
	Message     string
}

// Fixed policy catalog.
var (
	PolicyLogin = Policy{
		Name:        "login",
		MaxRequests: 5,
		Window:      5 * time.Minute,
		Message:     "too many login attempts, try again later",
	}
	PolicyRegistration = Policy{
		Name:        "registration",
		MaxRequests: 3,
		Window:      time.Hour,
		Message:     "too many registration attempts, try again later",
	}
	PolicyPasswordReset = Policy{
		Name:        "password-reset",
		MaxRequests: 3,
		Window:      time.Hour,
		Message:     "too many password reset requests, try again later",
	}
	PolicyGenericRead = Policy{
		Name:        "generic-read",
		MaxRequests: 100,
		Window:      time.Minute,
	}
	PolicyGenericWrite = Policy{
		Name:        "generic-write",
		MaxRequests: 30,
		Window:      time.Minute,
	}
	PolicyDefault = Policy{
		Name:        "default",
		MaxRequests: 200,
		Window:      time.Minute,
	}
)

// Catalog lists every defined policy.
var Catalog = []Policy{
	PolicyLogin,
	PolicyRegistration,
	PolicyPasswordReset,
	PolicyGenericRead,
	PolicyGenericWrite,
	PolicyDefault,
}

// PolicyByName looks a policy up in the catalog.
func PolicyByName(name string) (Policy, bool) {
	for _, p := range Catalog {
		if p.Name == name {
			return p, true
		}
	}
	return Policy{}, false
}
