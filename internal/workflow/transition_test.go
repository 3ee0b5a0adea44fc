package workflow

import (
	"errors"
	"testing"
)

func TestStatusEnumeration(t *testing.T) {
	all := AllStatuses()
	// 7 segments x (drafting, pending_review, rejected) + terminal approved
	if len(all) != 22 {
		t.Fatalf("expected 22 statuses, got %d", len(all))
	}

	seen := make(map[Status]bool)
	for _, s := range all {
		if seen[s] {
			t.Errorf("duplicate status %q", s)
		}
		seen[s] = true
		if !s.IsValid() {
			t.Errorf("enumerated status %q reported invalid", s)
		}
	}

	if Status("intake_draft").IsValid() {
		t.Error("near-miss status string reported valid")
	}
	if Status("").IsValid() {
		t.Error("empty status reported valid")
	}
}

func TestSegmentHelpers(t *testing.T) {
	if got := InitialStatus(); got != Status("intake_drafting") {
		t.Fatalf("InitialStatus() = %q", got)
	}

	seg, ok := SegmentOf(Status("costing_pending_review"))
	if !ok || seg != SegmentCosting {
		t.Fatalf("SegmentOf(costing_pending_review) = %q, %v", seg, ok)
	}

	if _, ok := SegmentOf(StatusApproved); ok {
		t.Error("terminal status must not belong to a segment")
	}

	if next, ok := NextSegment(SegmentFinancial); !ok || next != SegmentFinal {
		t.Errorf("NextSegment(financial) = %q, %v", next, ok)
	}
	if _, ok := NextSegment(SegmentFinal); ok {
		t.Error("final segment must have no successor")
	}
}

func TestApproverMapCoversEverySegment(t *testing.T) {
	for _, seg := range Segments() {
		role := ApproverFor(seg)
		if role == "" {
			t.Errorf("segment %q has no designated approver", seg)
		}
		if role == RoleAdmin || role == RoleUser {
			t.Errorf("segment %q approver %q must be a dedicated approver role", seg, role)
		}
	}
	if got := ApproverFor(SegmentSystemDesign); got != RoleDeveloper {
		t.Errorf("system design approver = %q, want developer", got)
	}
	if got := ApproverFor(SegmentCosting); got != RoleFinanceApprover {
		t.Errorf("costing approver = %q, want finance_approver", got)
	}
	if got := ApproverFor(SegmentValue); got != RoleSalesManager {
		t.Errorf("value approver = %q, want sales_manager", got)
	}
	if got := ApproverFor(SegmentFinal); got != RoleFinalApprover {
		t.Errorf("final approver = %q, want final_approver", got)
	}
}

// legalEdge reports whether the edge table defines (from, action).
func legalEdge(from Status, action Action) (Edge, bool) {
	for _, e := range Edges() {
		if e.From == from && e.Action == action {
			return e, true
		}
	}
	return Edge{}, false
}

// TestTransitionTotality walks every (status, action, role) triple. Any
// triple outside the defined edge set must produce an error, never a
// status; any triple inside it must either succeed or fail with the
// documented role/comment error.
func TestTransitionTotality(t *testing.T) {
	for _, from := range AllStatuses() {
		for _, action := range AllActions() {
			if action == ActionAdminOverride {
				continue // escape hatch covered separately
			}
			edge, defined := legalEdge(from, action)
			for _, role := range AllRoles() {
				for _, isOwner := range []bool{true, false} {
					got, err := Transition(from, Request{
						Action:  action,
						Role:    role,
						IsOwner: isOwner,
						Comment: "because",
					})

					if !defined {
						if !errors.Is(err, ErrInvalidTransition) {
							t.Errorf("Transition(%s, %s, %s) = (%q, %v), want ErrInvalidTransition", from, action, role, got, err)
						}
						continue
					}

					allowed := role == RoleAdmin ||
						(edge.OwnerGated && isOwner) ||
						(edge.Approver != "" && role == edge.Approver)

					if allowed {
						if err != nil {
							t.Errorf("Transition(%s, %s, %s, owner=%v) unexpected error: %v", from, action, role, isOwner, err)
						} else if got != edge.To {
							t.Errorf("Transition(%s, %s, %s) = %q, want %q", from, action, role, got, edge.To)
						}
					} else if !errors.Is(err, ErrForbiddenRole) {
						t.Errorf("Transition(%s, %s, %s, owner=%v) = (%q, %v), want ErrForbiddenRole", from, action, role, isOwner, got, err)
					}
				}
			}
		}
	}
}

// TestNoSkipSegment: an approve step lands either in the next segment's
// drafting status or on the terminal approved status, never further.
func TestNoSkipSegment(t *testing.T) {
	for _, seg := range Segments() {
		got, err := Transition(PendingStatus(seg), Request{Action: ActionApprove, Role: RoleAdmin})
		if err != nil {
			t.Fatalf("approve from %s pending: %v", seg, err)
		}
		next, hasNext := NextSegment(seg)
		if hasNext {
			if got != DraftingStatus(next) {
				t.Errorf("approve from %s landed on %q, want %q", seg, got, DraftingStatus(next))
			}
			if SegmentIndex(next) != SegmentIndex(seg)+1 {
				t.Errorf("approve from %s skipped to segment %s", seg, next)
			}
		} else if got != StatusApproved {
			t.Errorf("final approve landed on %q, want %q", got, StatusApproved)
		}
	}
}

// TestRoleGateSoundness enumerates every role/segment pair for the
// approve and reject edges.
func TestRoleGateSoundness(t *testing.T) {
	for _, seg := range Segments() {
		for _, role := range AllRoles() {
			for _, action := range []Action{ActionApprove, ActionReject} {
				_, err := Transition(PendingStatus(seg), Request{
					Action:  action,
					Role:    role,
					Comment: "insufficient detail",
				})
				want := role == RoleAdmin || role == ApproverFor(seg)
				if want && err != nil {
					t.Errorf("%s by %s on segment %s: unexpected %v", action, role, seg, err)
				}
				if !want && !errors.Is(err, ErrForbiddenRole) {
					t.Errorf("%s by %s on segment %s: got %v, want ErrForbiddenRole", action, role, seg, err)
				}
			}
		}
	}
}

func TestRejectRequiresComment(t *testing.T) {
	_, err := Transition(PendingStatus(SegmentEffort), Request{
		Action: ActionReject,
		Role:   RoleDeveloper,
	})
	if !errors.Is(err, ErrMissingComment) {
		t.Fatalf("reject without comment: got %v, want ErrMissingComment", err)
	}

	got, err := Transition(PendingStatus(SegmentEffort), Request{
		Action:  ActionReject,
		Role:    RoleDeveloper,
		Comment: "estimate is off by 3x",
	})
	if err != nil {
		t.Fatalf("reject with comment: %v", err)
	}
	if got != RejectedStatus(SegmentEffort) {
		t.Fatalf("reject landed on %q", got)
	}
}

func TestReworkLoopIsOnlyBackwardEdge(t *testing.T) {
	for _, e := range Edges() {
		fromSeg, fromSegOK := SegmentOf(e.From)
		toSeg, toSegOK := SegmentOf(e.To)
		if !fromSegOK || !toSegOK {
			continue // terminal edge
		}
		fromKind, _ := KindOf(e.From)
		if e.Action == ActionRegenerate {
			if fromKind != KindRejected || toSeg != fromSeg {
				t.Errorf("regenerate edge %s -> %s is not a same-segment rework loop", e.From, e.To)
			}
			continue
		}
		if SegmentIndex(toSeg) < SegmentIndex(fromSeg) {
			t.Errorf("edge %s -%s-> %s moves backward", e.From, e.Action, e.To)
		}
	}
}

func TestRegenerateOwnerGate(t *testing.T) {
	from := RejectedStatus(SegmentValue)

	if got, err := Transition(from, Request{Action: ActionRegenerate, Role: RoleUser, IsOwner: true}); err != nil || got != DraftingStatus(SegmentValue) {
		t.Errorf("owner regenerate = (%q, %v)", got, err)
	}
	if _, err := Transition(from, Request{Action: ActionRegenerate, Role: RoleUser, IsOwner: false}); !errors.Is(err, ErrForbiddenRole) {
		t.Errorf("non-owner regenerate: got %v, want ErrForbiddenRole", err)
	}
	if _, err := Transition(from, Request{Action: ActionRegenerate, Role: RoleSalesManager, IsOwner: false}); !errors.Is(err, ErrForbiddenRole) {
		t.Errorf("approver regenerate: got %v, want ErrForbiddenRole", err)
	}
	if got, err := Transition(from, Request{Action: ActionRegenerate, Role: RoleAdmin, IsOwner: false}); err != nil || got != DraftingStatus(SegmentValue) {
		t.Errorf("admin regenerate = (%q, %v)", got, err)
	}
}

func TestAdminOverride(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		target  Status
		comment string
		want    Status
		wantErr error
	}{
		{"admin to any status", RoleAdmin, PendingStatus(SegmentCosting), "repairing stuck case", PendingStatus(SegmentCosting), nil},
		{"admin straight to approved", RoleAdmin, StatusApproved, "executive decision", StatusApproved, nil},
		{"non-admin denied", RoleFinalApprover, StatusApproved, "please", "", ErrForbiddenRole},
		{"undefined target", RoleAdmin, Status("limbo"), "oops", "", ErrInvalidTransition},
		{"missing reason", RoleAdmin, InitialStatus(), "", "", ErrMissingComment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(StatusApproved, Request{
				Action:  ActionAdminOverride,
				Role:    tt.role,
				Comment: tt.comment,
				Target:  tt.target,
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTerminalStatusHasNoGuardedEdges(t *testing.T) {
	for _, e := range Edges() {
		if e.From == StatusApproved {
			t.Errorf("terminal approved status has guarded edge %v", e)
		}
	}
}
