package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

var reviewRoles = []string{
	RoleSystem,
	RoleTeacher,
	RoleHOD,
	RolePrincipal,
	RoleExamCommittee,
	RoleAdmin,
	RoleSuperAdmin,
	"student",
	"parent",
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, code, appErr.Code)
}

func TestCanTransitionLegalEdges(t *testing.T) {
	cases := []struct {
		from  State
		to    State
		roles []string
	}{
		{StateDraft, StateSubmitted, []string{RoleTeacher, RoleHOD}},
		{StateSubmitted, StatePendingHOD, []string{RoleSystem}},
		{StatePendingHOD, StateHODApproved, []string{RoleHOD}},
		{StatePendingHOD, StateHODRejected, []string{RoleHOD}},
		{StateHODApproved, StatePendingPrincipal, []string{RoleSystem, RoleHOD}},
		{StatePendingPrincipal, StatePrincipalApproved, []string{RolePrincipal}},
		{StatePendingPrincipal, StatePrincipalRejected, []string{RolePrincipal}},
		{StatePrincipalApproved, StateSentToCommittee, []string{RolePrincipal}},
		{StateSentToCommittee, StateActive, []string{RoleExamCommittee}},
		{StateActive, StateLocked, []string{RoleExamCommittee, RoleAdmin}},
		{StateLocked, StateArchived, []string{RoleAdmin, RoleSuperAdmin}},
		{StateHODRejected, StateDraft, []string{RoleTeacher, RoleHOD}},
		{StatePrincipalRejected, StateDraft, []string{RoleTeacher, RoleHOD}},
	}

	for _, tc := range cases {
		for _, role := range tc.roles {
			require.NoError(t, CanTransition(tc.from, tc.to, role),
				"edge %s -> %s should allow %s", tc.from, tc.to, role)
		}
	}
}

func TestCanTransitionRejectsEverythingOutsideTheTable(t *testing.T) {
	for _, from := range States() {
		for _, to := range States() {
			for _, role := range reviewRoles {
				err := CanTransition(from, to, role)
				if Allowed(from, to) {
					legal := false
					for _, allowed := range transitions[from][to] {
						if allowed == role {
							legal = true
						}
					}
					if legal {
						require.NoError(t, err, "%s -> %s as %s", from, to, role)
						continue
					}
				}
				requireCode(t, err, appErrors.ErrInvalidTransition.Code)
			}
		}
	}
}

func TestCanTransitionSelfLoopsAreIllegal(t *testing.T) {
	for _, s := range States() {
		requireCode(t, CanTransition(s, s, RoleSuperAdmin), appErrors.ErrInvalidTransition.Code)
	}
}

func TestArchivedIsTerminal(t *testing.T) {
	require.True(t, IsTerminal(StateArchived))
	require.Empty(t, NextStates(StateArchived))
	for _, s := range States() {
		if s == StateArchived {
			continue
		}
		require.False(t, IsTerminal(s), "state %s should have outgoing edges", s)
	}
}

func TestCanSubmit(t *testing.T) {
	target, err := CanSubmit(StateDraft, RoleTeacher)
	require.NoError(t, err)
	require.Equal(t, StatePendingHOD, target)

	target, err = CanSubmit(StateDraft, RoleHOD)
	require.NoError(t, err)
	require.Equal(t, StatePendingHOD, target)

	_, err = CanSubmit(StateDraft, RolePrincipal)
	requireCode(t, err, appErrors.ErrInvalidTransition.Code)

	_, err = CanSubmit(StatePendingHOD, RoleTeacher)
	requireCode(t, err, appErrors.ErrInvalidTransition.Code)

	_, err = CanSubmit(StateHODRejected, RoleTeacher)
	requireCode(t, err, appErrors.ErrInvalidTransition.Code)
}

func TestReviewTarget(t *testing.T) {
	target, err := ReviewTarget(StatePendingHOD, true)
	require.NoError(t, err)
	require.Equal(t, StateHODApproved, target)

	target, err = ReviewTarget(StatePendingHOD, false)
	require.NoError(t, err)
	require.Equal(t, StateHODRejected, target)

	target, err = ReviewTarget(StatePendingPrincipal, true)
	require.NoError(t, err)
	require.Equal(t, StatePrincipalApproved, target)

	target, err = ReviewTarget(StatePendingPrincipal, false)
	require.NoError(t, err)
	require.Equal(t, StatePrincipalRejected, target)

	for _, s := range []State{StateDraft, StateHODApproved, StateActive, StateArchived} {
		_, err := ReviewTarget(s, true)
		requireCode(t, err, appErrors.ErrInvalidTransition.Code)
	}
}

func TestCheckGuardsBlueprintMandatory(t *testing.T) {
	err := CheckGuards(StateDraft, StateSubmitted, Guards{BlueprintMandatory: true})
	requireCode(t, err, appErrors.ErrGuardFailed.Code)

	require.NoError(t, CheckGuards(StateDraft, StateSubmitted, Guards{
		BlueprintMandatory: true,
		BlueprintAttached:  true,
	}))

	require.NoError(t, CheckGuards(StateDraft, StateSubmitted, Guards{
		BlueprintMandatory: false,
		BlueprintAttached:  false,
	}))
}

func TestCheckGuardsBlueprintApprovalBeforePrincipal(t *testing.T) {
	err := CheckGuards(StateHODApproved, StatePendingPrincipal, Guards{
		BlueprintAttached: true,
	})
	requireCode(t, err, appErrors.ErrGuardFailed.Code)

	require.NoError(t, CheckGuards(StateHODApproved, StatePendingPrincipal, Guards{
		BlueprintAttached: true,
		BlueprintApproved: true,
	}))

	// No blueprint attached and none required: nothing to inspect.
	require.NoError(t, CheckGuards(StateHODApproved, StatePendingPrincipal, Guards{}))
}

func TestParseState(t *testing.T) {
	s, err := ParseState("  Pending_HOD ")
	require.NoError(t, err)
	require.Equal(t, StatePendingHOD, s)

	_, err = ParseState("printing")
	requireCode(t, err, appErrors.ErrValidation.Code)
}

func TestNextStatesOrder(t *testing.T) {
	require.Equal(t, []State{StateHODApproved, StateHODRejected}, NextStates(StatePendingHOD))
	require.Equal(t, []State{StateSubmitted}, NextStates(StateDraft))
	require.Equal(t, []State{StateDraft}, NextStates(StatePrincipalRejected))
}

func TestIsRejected(t *testing.T) {
	require.True(t, IsRejected(StateHODRejected))
	require.True(t, IsRejected(StatePrincipalRejected))
	require.False(t, IsRejected(StateDraft))
	require.False(t, IsRejected(StateArchived))
}
