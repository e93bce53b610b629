package models

import (
	"time"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
)

// HTTP activity audit actions.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionUserCreate     = "USER_CREATE"
	AuditActionUserUpdate     = "USER_UPDATE"
	AuditActionUserDelete     = "USER_DELETE"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionTenantCreate   = "TENANT_CREATE"
	AuditActionTenantUpdate   = "TENANT_UPDATE"
	AuditActionYearActivate   = "YEAR_ACTIVATE"
	AuditActionYearLock       = "YEAR_LOCK"
	AuditActionPolicyUpsert   = "POLICY_UPSERT"
)

// AuditLog records an HTTP-level activity entry captured by middleware.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Workflow ledger actions. Each one names the operation that produced the
// transition row, not the edge itself.
const (
	ExamAuditActionSubmit          = "submit"
	ExamAuditActionApprove         = "approve"
	ExamAuditActionReject          = "reject"
	ExamAuditActionAdvance         = "advance"
	ExamAuditActionSendToCommittee = "send_to_committee"
	ExamAuditActionActivate        = "activate"
	ExamAuditActionLock            = "lock"
	ExamAuditActionUnlock          = "unlock"
	ExamAuditActionArchive         = "archive"
	ExamAuditActionResubmit        = "resubmit"
)

// ExamAuditLog is one immutable row in the workflow ledger. Rows are written
// in the same transaction as the state change they describe and are never
// updated or deleted.
type ExamAuditLog struct {
	ID         string         `db:"id" json:"id"`
	TenantID   string         `db:"tenant_id" json:"tenantId"`
	EntityType string         `db:"entity_type" json:"entityType"`
	EntityID   string         `db:"entity_id" json:"entityId"`
	Action     string         `db:"action" json:"action"`
	FromState  workflow.State `db:"from_state" json:"fromState"`
	ToState    workflow.State `db:"to_state" json:"toState"`
	ActorID    string         `db:"actor_id" json:"actorId"`
	ActorRole  string         `db:"actor_role" json:"actorRole"`
	Comments   *string        `db:"comments" json:"comments,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}

// Ledger entity types. Papers record their workflow edges; blueprints record
// governance flips (approve, lock, unlock).
const (
	EntityTypeTestPaper = "test_paper"
	EntityTypeBlueprint = "blueprint"
)

// Blueprints are not workflow entities; their ledger rows carry these
// pseudo-states in the from/to columns instead.
const (
	BlueprintStateDraft    workflow.State = "draft"
	BlueprintStateApproved workflow.State = "approved"
	BlueprintStateUnlocked workflow.State = "unlocked"
	BlueprintStateLocked   workflow.State = "locked"
)
