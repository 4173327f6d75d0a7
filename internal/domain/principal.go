package domain

import (
	"fmt"
	"sort"
	"time"
)

// Role is the closed set of principal roles
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// ParseRole validates a raw role value
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleAdmin, RoleManager, RoleStaff:
		return r, nil
	}
	return "", InvalidArgument("unknown role %q", raw)
}

// Capability is a named permission flag checked at the API boundary
type Capability string

const (
	CapViewJobs        Capability = "jobs.view"
	CapCreateJobs      Capability = "jobs.create"
	CapEditJobs        Capability = "jobs.edit"
	CapDeleteJobs      Capability = "jobs.delete"
	CapAssignJobs      Capability = "jobs.assign"
	CapUpdateJobStatus Capability = "jobs.update_status"
	CapViewDashboard   Capability = "dashboard.view"
)

var knownCapabilities = map[Capability]struct{}{
	CapViewJobs:        {},
	CapCreateJobs:      {},
	CapEditJobs:        {},
	CapDeleteJobs:      {},
	CapAssignJobs:      {},
	CapUpdateJobStatus: {},
	CapViewDashboard:   {},
}

// roleCapabilities are granted implicitly by role
var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapViewJobs, CapCreateJobs, CapEditJobs, CapDeleteJobs,
		CapAssignJobs, CapUpdateJobStatus, CapViewDashboard,
	},
	RoleManager: {
		CapViewJobs, CapCreateJobs, CapEditJobs, CapAssignJobs,
		CapUpdateJobStatus, CapViewDashboard,
	},
	RoleStaff: {
		CapViewJobs, CapUpdateJobStatus,
	},
}

// ParseCapability validates a raw capability name
func ParseCapability(raw string) (Capability, error) {
	c := Capability(raw)
	if _, ok := knownCapabilities[c]; !ok {
		return "", InvalidArgument("unknown capability %q", raw)
	}
	return c, nil
}

// CapabilitySet is a set of explicitly granted capabilities
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from a list
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether c is in the set
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the capabilities sorted by name
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Principal is a user as seen by the core: identity, role and extra grants
type Principal struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Role         Role          `json:"role"`
	Capabilities CapabilitySet `json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Can reports whether the principal holds c, by role or by explicit grant
func (p *Principal) Can(c Capability) bool {
	for _, rc := range roleCapabilities[p.Role] {
		if rc == c {
			return true
		}
	}
	return p.Capabilities.Has(c)
}

func (p *Principal) String() string {
	return fmt.Sprintf("%s (#%d)", p.Name, p.ID)
}
