package policy

import (
	"fmt"
	"strings"

	"backend/internal/workflow"
)

// Row-level security generation. The application-layer matrix above and
// the storage-tier policies below are two enforcement points for the same
// rules; to keep them from drifting apart, the SQL is derived from the
// identical data (approver map, field/segment map, status enumeration)
// rather than maintained by hand. Connections are expected to set
// app.actor_id and app.actor_role per request.

const casesTable = "business_cases"

// RowPolicyStatements returns the DDL recreating every row security
// policy on the business_cases table. Statements are idempotent
// (DROP IF EXISTS before CREATE) so they can run on every boot after
// migration.
func RowPolicyStatements() []string {
	stmts := []string{
		fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", casesTable),
	}

	add := func(name, clause string) {
		stmts = append(stmts,
			fmt.Sprintf("DROP POLICY IF EXISTS %s ON %s", name, casesTable),
			fmt.Sprintf("CREATE POLICY %s ON %s %s", name, casesTable, clause),
		)
	}

	actorID := "current_setting('app.actor_id', true)"
	actorRole := "current_setting('app.actor_role', true)"

	// Admin: everything.
	add("cases_admin_all", fmt.Sprintf("USING (%s = '%s')", actorRole, workflow.RoleAdmin))

	// Owner: read own cases.
	add("cases_owner_read", fmt.Sprintf("FOR SELECT USING (owner_id::text = %s)", actorID))

	// Owner: content edits only in a Drafting status. Which fields may
	// change per status is finer-grained than row policies can express;
	// the application layer narrows it to the segment's own fields.
	add("cases_owner_draft_write", fmt.Sprintf(
		"FOR UPDATE USING (owner_id::text = %s AND status IN (%s))",
		actorID, statusList(draftingStatuses())))

	// Owner: flip shareable once approved.
	add("cases_owner_share_write", fmt.Sprintf(
		"FOR UPDATE USING (owner_id::text = %s AND status = '%s')",
		actorID, workflow.StatusApproved))

	// Per-role approver read on that role's pending-review statuses.
	for _, role := range workflow.AllRoles() {
		pending := PendingStatusesFor(role)
		if len(pending) == 0 {
			continue
		}
		add(fmt.Sprintf("cases_%s_review_read", role), fmt.Sprintf(
			"FOR SELECT USING (%s = '%s' AND status IN (%s))",
			actorRole, role, statusList(pending)))
	}

	// Anyone authenticated: read shared approved cases.
	add("cases_shared_read", fmt.Sprintf(
		"FOR SELECT USING (shareable AND status = '%s' AND %s IS NOT NULL)",
		workflow.StatusApproved, actorID))

	return stmts
}

// GenerateRowPolicies renders the statements as a single script, for
// inspection or offline application.
func GenerateRowPolicies() string {
	return strings.Join(RowPolicyStatements(), ";\n") + ";\n"
}

func draftingStatuses() []workflow.Status {
	var out []workflow.Status
	for _, seg := range workflow.Segments() {
		out = append(out, workflow.DraftingStatus(seg))
	}
	return out
}

func statusList(statuses []workflow.Status) string {
	quoted := make([]string, len(statuses))
	for i, s := range statuses {
		quoted[i] = "'" + string(s) + "'"
	}
	return strings.Join(quoted, ", ")
}
