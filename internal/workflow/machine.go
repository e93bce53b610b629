package workflow

import (
	"fmt"
	"strings"

	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

// State identifies a test paper's position in the approval pipeline.
type State string

const (
	StateDraft             State = "draft"
	StateSubmitted         State = "submitted"
	StatePendingHOD        State = "pending_hod"
	StateHODApproved       State = "hod_approved"
	StateHODRejected       State = "hod_rejected"
	StatePendingPrincipal  State = "pending_principal"
	StatePrincipalApproved State = "principal_approved"
	StatePrincipalRejected State = "principal_rejected"
	StateSentToCommittee   State = "sent_to_committee"
	StateActive            State = "active"
	StateLocked            State = "locked"
	StateArchived          State = "archived"
)

// Role strings accepted by the edge table. They match the user role values on
// the wire; RoleSystem marks hops the engine takes on its own.
const (
	RoleSystem        = "system"
	RoleTeacher       = "teacher"
	RoleHOD           = "hod"
	RolePrincipal     = "principal"
	RoleExamCommittee = "exam_committee"
	RoleAdmin         = "admin"
	RoleSuperAdmin    = "super_admin"
)

// states lists every state in pipeline order.
var states = []State{
	StateDraft,
	StateSubmitted,
	StatePendingHOD,
	StateHODApproved,
	StateHODRejected,
	StatePendingPrincipal,
	StatePrincipalApproved,
	StatePrincipalRejected,
	StateSentToCommittee,
	StateActive,
	StateLocked,
	StateArchived,
}

// transitions maps each legal edge to the roles allowed to take it.
var transitions = map[State]map[State][]string{
	StateDraft: {
		StateSubmitted: {RoleTeacher, RoleHOD},
	},
	StateSubmitted: {
		StatePendingHOD: {RoleSystem},
	},
	StatePendingHOD: {
		StateHODApproved: {RoleHOD},
		StateHODRejected: {RoleHOD},
	},
	StateHODApproved: {
		StatePendingPrincipal: {RoleSystem, RoleHOD},
	},
	StatePendingPrincipal: {
		StatePrincipalApproved: {RolePrincipal},
		StatePrincipalRejected: {RolePrincipal},
	},
	StatePrincipalApproved: {
		StateSentToCommittee: {RolePrincipal},
	},
	StateSentToCommittee: {
		StateActive: {RoleExamCommittee},
	},
	StateActive: {
		StateLocked: {RoleExamCommittee, RoleAdmin},
	},
	StateLocked: {
		StateArchived: {RoleAdmin, RoleSuperAdmin},
	},
	StateHODRejected: {
		StateDraft: {RoleTeacher, RoleHOD},
	},
	StatePrincipalRejected: {
		StateDraft: {RoleTeacher, RoleHOD},
	},
}

// States returns every state in pipeline order.
func States() []State {
	out := make([]State, len(states))
	copy(out, states)
	return out
}

// Valid reports whether s is a known state.
func Valid(s State) bool {
	for _, known := range states {
		if known == s {
			return true
		}
	}
	return false
}

// ParseState normalises raw input into a State.
func ParseState(raw string) (State, error) {
	s := State(strings.ToLower(strings.TrimSpace(raw)))
	if !Valid(s) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown workflow state: %s", raw))
	}
	return s, nil
}

// IsTerminal reports whether no edge leaves s.
func IsTerminal(s State) bool {
	return len(transitions[s]) == 0
}

// IsRejected reports whether s is one of the recoverable rejection states.
func IsRejected(s State) bool {
	return s == StateHODRejected || s == StatePrincipalRejected
}

// NextStates returns the states reachable from s in one edge.
func NextStates(s State) []State {
	edges := transitions[s]
	if len(edges) == 0 {
		return nil
	}
	out := make([]State, 0, len(edges))
	for _, candidate := range states {
		if _, ok := edges[candidate]; ok {
			out = append(out, candidate)
		}
	}
	return out
}

// Allowed reports whether the edge from → to exists for any role.
func Allowed(from, to State) bool {
	_, ok := transitions[from][to]
	return ok
}

// CanTransition validates the edge from → to for the given actor role.
func CanTransition(from, to State, role string) error {
	roles, ok := transitions[from][to]
	if !ok {
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("no transition from %s to %s", from, to))
	}
	for _, allowed := range roles {
		if allowed == role {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition,
		fmt.Sprintf("role %s may not move a paper from %s to %s", role, from, to))
}

// CanSubmit validates the composed submit hop (draft → submitted → pending_hod)
// for the actor role and returns the resting state. The submitted hop is taken
// by the engine itself and is never persisted; submit is one logical transition
// from draft to pending_hod.
func CanSubmit(from State, role string) (State, error) {
	if err := CanTransition(from, StateSubmitted, role); err != nil {
		return "", err
	}
	if err := CanTransition(StateSubmitted, StatePendingHOD, RoleSystem); err != nil {
		return "", err
	}
	return StatePendingHOD, nil
}

// ReviewTarget resolves an approve/reject decision against the current state.
func ReviewTarget(current State, approve bool) (State, error) {
	switch current {
	case StatePendingHOD:
		if approve {
			return StateHODApproved, nil
		}
		return StateHODRejected, nil
	case StatePendingPrincipal:
		if approve {
			return StatePrincipalApproved, nil
		}
		return StatePrincipalRejected, nil
	default:
		return "", appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("state %s has no pending review decision", current))
	}
}

// Guards carries the blueprint/policy facts evaluated before an edge is taken.
type Guards struct {
	BlueprintMandatory bool
	BlueprintAttached  bool
	BlueprintApproved  bool
}

// CheckGuards enforces the blueprint preconditions on the edge from → to:
// leaving draft requires an attached blueprint when policy makes one mandatory,
// and entering principal review requires the attached blueprint to be approved.
func CheckGuards(from, to State, g Guards) error {
	if from == StateDraft && to != StateDraft {
		if g.BlueprintMandatory && !g.BlueprintAttached {
			return appErrors.Clone(appErrors.ErrGuardFailed,
				"a blueprint must be attached before the paper leaves draft")
		}
	}
	if to == StatePendingPrincipal {
		if g.BlueprintAttached && !g.BlueprintApproved {
			return appErrors.Clone(appErrors.ErrGuardFailed,
				"the attached blueprint must be approved before principal review")
		}
	}
	return nil
}
