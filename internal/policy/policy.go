// Package policy is the stage-gated access control matrix for business
// cases. It is deliberately a set of pure functions over a small case
// view so the same matrix can be unit-tested exhaustively and re-emitted
// as storage-tier row security rules (rowpolicy.go) without drift.
package policy

import "backend/internal/workflow"

// CaseView is the minimal projection of a business case the matrix needs.
type CaseView struct {
	OwnerID   string
	Status    workflow.Status
	Shareable bool
}

// CanRead implements the read matrix. Deny by default: a reader must be
// the owner, an admin, the designated approver of the case's current
// pending review, or anyone at all once an approved case is shared.
func CanRead(role workflow.Role, actorID string, cv CaseView) bool {
	if actorID != "" && actorID == cv.OwnerID {
		return true
	}
	if role == workflow.RoleAdmin {
		return true
	}
	if cv.Status == workflow.StatusApproved && cv.Shareable {
		return true
	}
	if seg, ok := workflow.SegmentOf(cv.Status); ok {
		kind, _ := workflow.KindOf(cv.Status)
		if kind == workflow.KindPendingReview && role == workflow.ApproverFor(seg) {
			return true
		}
	}
	return false
}

// CanEditField gates content mutation: only the owner, only while the
// case sits in the Drafting status of the segment the field belongs to.
// Status changes are never authorized here; they go through the workflow
// engine.
func CanEditField(role workflow.Role, actorID string, cv CaseView, field string) bool {
	seg, ok := FieldSegment(field)
	if !ok {
		return false
	}
	if actorID == "" || actorID != cv.OwnerID {
		return false
	}
	return cv.Status == workflow.DraftingStatus(seg)
}

// CanAttempt is the pre-gate checked before the workflow engine is even
// invoked: whether this actor's role is eligible to request the action at
// all. The engine still enforces the per-edge gate.
func CanAttempt(role workflow.Role, isOwner bool, action workflow.Action) bool {
	if role == workflow.RoleAdmin {
		return true
	}
	switch action {
	case workflow.ActionSubmit, workflow.ActionRegenerate:
		return isOwner
	case workflow.ActionApprove, workflow.ActionReject:
		return isApproverRole(role)
	case workflow.ActionAdminOverride:
		return false
	}
	return false
}

// CanSetShareable allows the owner or an admin to flip the shareable flag,
// and only once the case has reached the terminal Approved status.
func CanSetShareable(role workflow.Role, actorID string, cv CaseView) bool {
	if cv.Status != workflow.StatusApproved {
		return false
	}
	return role == workflow.RoleAdmin || (actorID != "" && actorID == cv.OwnerID)
}

// CanDelete permits hard deletion. Admin only; owners never delete.
func CanDelete(role workflow.Role) bool {
	return role == workflow.RoleAdmin
}

// PendingStatusesFor returns the pending-review statuses a role may act
// on as designated approver, in path order. Used for approver work queues
// and the generated row policies.
func PendingStatusesFor(role workflow.Role) []workflow.Status {
	var out []workflow.Status
	for _, seg := range workflow.Segments() {
		if workflow.ApproverFor(seg) == role {
			out = append(out, workflow.PendingStatus(seg))
		}
	}
	return out
}

func isApproverRole(role workflow.Role) bool {
	return len(PendingStatusesFor(role)) > 0
}
