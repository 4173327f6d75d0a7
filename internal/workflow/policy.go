package workflow

import (
	"fmt"

	"github.com/cuongbtq/fieldops-be/internal/domain"
)

// TransitionPolicy decides whether a job may move between two statuses
type TransitionPolicy interface {
	Name() string
	Allowed(from, to domain.JobStatus) bool
}

// Policy names accepted by ParsePolicy
const (
	PolicyPermissive = "permissive"
	PolicyStrict     = "strict"
)

// Permissive allows any status to follow any other
type Permissive struct{}

func (Permissive) Name() string                       { return PolicyPermissive }
func (Permissive) Allowed(_, _ domain.JobStatus) bool { return true }

// Strict enforces the forward-only lifecycle. Completed and cancelled jobs
// are terminal.
type Strict struct{}

var strictTable = map[domain.JobStatus][]domain.JobStatus{
	domain.JobStatusPending:   {domain.JobStatusTraveling, domain.JobStatusCancelled},
	domain.JobStatusTraveling: {domain.JobStatusWorking, domain.JobStatusCancelled},
	domain.JobStatusWorking:   {domain.JobStatusCompleted, domain.JobStatusCancelled},
	domain.JobStatusCompleted: {},
	domain.JobStatusCancelled: {},
}

func (Strict) Name() string { return PolicyStrict }

func (Strict) Allowed(from, to domain.JobStatus) bool {
	for _, next := range strictTable[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParsePolicy maps a config value to a policy. Empty means permissive.
func ParsePolicy(name string) (TransitionPolicy, error) {
	switch name {
	case PolicyPermissive, "":
		return Permissive{}, nil
	case PolicyStrict:
		return Strict{}, nil
	default:
		return nil, fmt.Errorf("unknown transition policy %q (want %q or %q)", name, PolicyPermissive, PolicyStrict)
	}
}
