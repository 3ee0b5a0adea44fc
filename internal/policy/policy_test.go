package policy

import (
	"strings"
	"testing"

	"backend/internal/workflow"
)

const (
	ownerID    = "3f7f5c7e-9f3d-4e5a-9f33-000000000001"
	strangerID = "3f7f5c7e-9f3d-4e5a-9f33-000000000002"
)

func ownedCase(status workflow.Status) CaseView {
	return CaseView{OwnerID: ownerID, Status: status}
}

// Deny-by-default: a fresh case is invisible and immutable to any
// non-owner, non-admin actor, whatever their role.
func TestDenyByDefault(t *testing.T) {
	cv := ownedCase(workflow.InitialStatus())
	for _, role := range workflow.AllRoles() {
		if role == workflow.RoleAdmin {
			continue
		}
		if CanRead(role, strangerID, cv) {
			t.Errorf("CanRead(%s, stranger) = true on a fresh case", role)
		}
		for _, field := range EditableFields() {
			if CanEditField(role, strangerID, cv, field) {
				t.Errorf("CanEditField(%s, stranger, %s) = true on a fresh case", role, field)
			}
		}
	}
}

func TestOwnerAndAdminRead(t *testing.T) {
	for _, status := range workflow.AllStatuses() {
		cv := ownedCase(status)
		if !CanRead(workflow.RoleUser, ownerID, cv) {
			t.Errorf("owner denied read at %s", status)
		}
		if !CanRead(workflow.RoleAdmin, strangerID, cv) {
			t.Errorf("admin denied read at %s", status)
		}
	}
}

// Approvers may read exactly their segments' pending-review statuses.
func TestApproverReadMatrix(t *testing.T) {
	for _, role := range workflow.AllRoles() {
		if role == workflow.RoleAdmin {
			continue
		}
		for _, status := range workflow.AllStatuses() {
			got := CanRead(role, strangerID, ownedCase(status))

			want := false
			if seg, ok := workflow.SegmentOf(status); ok {
				if kind, _ := workflow.KindOf(status); kind == workflow.KindPendingReview {
					want = workflow.ApproverFor(seg) == role
				}
			}

			if got != want {
				t.Errorf("CanRead(%s, stranger, %s) = %v, want %v", role, status, got, want)
			}
		}
	}
}

func TestShareableRead(t *testing.T) {
	shared := CaseView{OwnerID: ownerID, Status: workflow.StatusApproved, Shareable: true}
	if !CanRead(workflow.RoleUser, strangerID, shared) {
		t.Error("any authenticated actor should read a shared approved case")
	}

	unshared := CaseView{OwnerID: ownerID, Status: workflow.StatusApproved}
	if CanRead(workflow.RoleUser, strangerID, unshared) {
		t.Error("approved but unshared case must stay private")
	}

	// Shareable never grants read before the terminal status.
	early := CaseView{OwnerID: ownerID, Status: workflow.InitialStatus(), Shareable: true}
	if CanRead(workflow.RoleUser, strangerID, early) {
		t.Error("shareable flag must not leak unapproved cases")
	}
}

// Content fields are writable by the owner only, only in the drafting
// status of the field's own segment.
func TestFieldSegmentGating(t *testing.T) {
	for _, field := range EditableFields() {
		seg, ok := FieldSegment(field)
		if !ok {
			t.Fatalf("editable field %q has no segment", field)
		}
		for _, status := range workflow.AllStatuses() {
			cv := ownedCase(status)
			got := CanEditField(workflow.RoleUser, ownerID, cv, field)
			want := status == workflow.DraftingStatus(seg)
			if got != want {
				t.Errorf("CanEditField(owner, %s, %s) = %v, want %v", status, field, got, want)
			}
		}
	}
}

func TestEditFieldUnknownAndNonOwner(t *testing.T) {
	cv := ownedCase(workflow.InitialStatus())
	if CanEditField(workflow.RoleUser, ownerID, cv, "status") {
		t.Error("status must never be writable as a content field")
	}
	if CanEditField(workflow.RoleUser, ownerID, cv, "nonsense") {
		t.Error("unknown field writable")
	}
	// The segment approver does not get content writes either.
	if CanEditField(workflow.RoleSalesManager, strangerID, cv, FieldProblemStatement) {
		t.Error("approver must not edit content")
	}
	// Admin reads everything but content edits stay owner-only.
	if CanEditField(workflow.RoleAdmin, strangerID, cv, FieldProblemStatement) {
		t.Error("admin content edit must go through ownership, not role")
	}
}

func TestCanAttempt(t *testing.T) {
	tests := []struct {
		role    workflow.Role
		isOwner bool
		action  workflow.Action
		want    bool
	}{
		{workflow.RoleUser, true, workflow.ActionSubmit, true},
		{workflow.RoleUser, false, workflow.ActionSubmit, false},
		{workflow.RoleUser, true, workflow.ActionRegenerate, true},
		{workflow.RoleUser, true, workflow.ActionApprove, false},
		{workflow.RoleUser, true, workflow.ActionAdminOverride, false},
		{workflow.RoleDeveloper, false, workflow.ActionApprove, true},
		{workflow.RoleDeveloper, false, workflow.ActionReject, true},
		{workflow.RoleFinalApprover, false, workflow.ActionReject, true},
		{workflow.RoleFinalApprover, false, workflow.ActionAdminOverride, false},
		{workflow.RoleAdmin, false, workflow.ActionAdminOverride, true},
		{workflow.RoleAdmin, false, workflow.ActionSubmit, true},
	}
	for _, tt := range tests {
		if got := CanAttempt(tt.role, tt.isOwner, tt.action); got != tt.want {
			t.Errorf("CanAttempt(%s, owner=%v, %s) = %v, want %v", tt.role, tt.isOwner, tt.action, got, tt.want)
		}
	}
}

func TestCanSetShareable(t *testing.T) {
	approved := CaseView{OwnerID: ownerID, Status: workflow.StatusApproved}
	if !CanSetShareable(workflow.RoleUser, ownerID, approved) {
		t.Error("owner denied shareable on approved case")
	}
	if !CanSetShareable(workflow.RoleAdmin, strangerID, approved) {
		t.Error("admin denied shareable on approved case")
	}
	if CanSetShareable(workflow.RoleUser, strangerID, approved) {
		t.Error("stranger allowed shareable")
	}

	pending := ownedCase(workflow.PendingStatus(workflow.SegmentFinal))
	if CanSetShareable(workflow.RoleUser, ownerID, pending) {
		t.Error("shareable settable before terminal approval")
	}
}

func TestCanDelete(t *testing.T) {
	if !CanDelete(workflow.RoleAdmin) {
		t.Error("admin denied delete")
	}
	for _, role := range workflow.AllRoles() {
		if role != workflow.RoleAdmin && CanDelete(role) {
			t.Errorf("role %s allowed delete", role)
		}
	}
}

// The generated storage-tier rules must agree with the in-process
// matrix: a pending-review status appears in a role's review-read policy
// exactly when CanRead grants that role a non-owner read of it.
func TestRowPolicyParity(t *testing.T) {
	script := GenerateRowPolicies()

	for _, role := range workflow.AllRoles() {
		if role == workflow.RoleAdmin {
			continue
		}
		policyName := "cases_" + string(role) + "_review_read"
		clause := extractPolicy(t, script, policyName)

		for _, status := range workflow.AllStatuses() {
			kind, _ := workflow.KindOf(status)
			if kind != workflow.KindPendingReview {
				continue
			}
			inSQL := clause != "" && strings.Contains(clause, "'"+string(status)+"'")
			inMatrix := CanRead(role, strangerID, ownedCase(status))
			if inSQL != inMatrix {
				t.Errorf("role %s, status %s: storage rule says %v, matrix says %v", role, status, inSQL, inMatrix)
			}
		}
	}
}

func TestRowPolicyShape(t *testing.T) {
	script := GenerateRowPolicies()

	for _, want := range []string{
		"ENABLE ROW LEVEL SECURITY",
		"cases_admin_all",
		"cases_owner_read",
		"cases_owner_draft_write",
		"cases_owner_share_write",
		"cases_shared_read",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("generated policies missing %q", want)
		}
	}

	// Every drafting status must be writable by its owner at the
	// storage tier, mirroring CanEditField.
	draftClause := extractPolicy(t, script, "cases_owner_draft_write")
	for _, seg := range workflow.Segments() {
		if !strings.Contains(draftClause, "'"+string(workflow.DraftingStatus(seg))+"'") {
			t.Errorf("owner draft write policy missing %s", workflow.DraftingStatus(seg))
		}
	}

	// Statements are paired DROP IF EXISTS / CREATE so boots stay
	// idempotent.
	stmts := RowPolicyStatements()
	var drops, creates int
	for _, s := range stmts {
		if strings.HasPrefix(s, "DROP POLICY IF EXISTS") {
			drops++
		}
		if strings.HasPrefix(s, "CREATE POLICY") {
			creates++
		}
	}
	if drops != creates {
		t.Errorf("unpaired policy statements: %d drops, %d creates", drops, creates)
	}
}

// extractPolicy returns the CREATE POLICY statement for name, or "".
func extractPolicy(t *testing.T, script, name string) string {
	t.Helper()
	for _, stmt := range strings.Split(script, ";\n") {
		if strings.HasPrefix(stmt, "CREATE POLICY "+name+" ") {
			return stmt
		}
	}
	return ""
}
