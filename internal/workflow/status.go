package workflow

// Status is one node of the business case lifecycle graph. Stored as a
// string enum in the business_cases table.
type Status string

// Segment is one sequential phase of the workflow. Every segment owns a
// Drafting, PendingReview and Rejected status; the Final segment's approve
// edge lands on the single terminal StatusApproved.
type Segment string

// Kind classifies a status within its segment.
type Kind string

// Role is the actor capability claim carried in the JWT. Roles are
// independent capability sets, not a hierarchy.
type Role string

const (
	SegmentIntake       Segment = "intake"
	SegmentSystemDesign Segment = "system_design"
	SegmentEffort       Segment = "effort"
	SegmentCosting      Segment = "costing"
	SegmentValue        Segment = "value"
	SegmentFinancial    Segment = "financial"
	SegmentFinal        Segment = "final"
)

const (
	KindDrafting      Kind = "drafting"
	KindPendingReview Kind = "pending_review"
	KindRejected      Kind = "rejected"
	KindTerminal      Kind = "terminal"
)

const (
	RoleAdmin           Role = "admin"
	RoleUser            Role = "user"
	RoleDeveloper       Role = "developer"
	RoleFinanceApprover Role = "finance_approver"
	RoleSalesManager    Role = "sales_manager"
	RoleFinalApprover   Role = "final_approver"
)

// StatusApproved is the single terminal success status, reached by
// approving the Final segment's review.
const StatusApproved Status = "approved"

// segmentOrder fixes the forward path through the workflow.
var segmentOrder = []Segment{
	SegmentIntake,
	SegmentSystemDesign,
	SegmentEffort,
	SegmentCosting,
	SegmentValue,
	SegmentFinancial,
	SegmentFinal,
}

// approvers maps each segment to the single role allowed to approve or
// reject its pending review. Admin is additionally allowed on every edge.
var approvers = map[Segment]Role{
	SegmentIntake:       RoleSalesManager,
	SegmentSystemDesign: RoleDeveloper,
	SegmentEffort:       RoleDeveloper,
	SegmentCosting:      RoleFinanceApprover,
	SegmentValue:        RoleSalesManager,
	SegmentFinancial:    RoleFinanceApprover,
	SegmentFinal:        RoleFinalApprover,
}

// DraftingStatus returns the Drafting status of a segment.
func DraftingStatus(s Segment) Status { return Status(string(s) + "_drafting") }

// PendingStatus returns the PendingReview status of a segment.
func PendingStatus(s Segment) Status { return Status(string(s) + "_pending_review") }

// RejectedStatus returns the Rejected status of a segment.
func RejectedStatus(s Segment) Status { return Status(string(s) + "_rejected") }

// InitialStatus is where every new business case starts.
func InitialStatus() Status { return DraftingStatus(SegmentIntake) }

type statusInfo struct {
	segment Segment
	kind    Kind
}

var statusIndex = buildStatusIndex()

func buildStatusIndex() map[Status]statusInfo {
	idx := make(map[Status]statusInfo, len(segmentOrder)*3+1)
	for _, seg := range segmentOrder {
		idx[DraftingStatus(seg)] = statusInfo{segment: seg, kind: KindDrafting}
		idx[PendingStatus(seg)] = statusInfo{segment: seg, kind: KindPendingReview}
		idx[RejectedStatus(seg)] = statusInfo{segment: seg, kind: KindRejected}
	}
	idx[StatusApproved] = statusInfo{kind: KindTerminal}
	return idx
}

// IsValid reports whether s is one of the defined statuses.
func (s Status) IsValid() bool {
	_, ok := statusIndex[s]
	return ok
}

// SegmentOf returns the segment owning the status. The terminal Approved
// status belongs to no segment and returns ("", false).
func SegmentOf(s Status) (Segment, bool) {
	info, ok := statusIndex[s]
	if !ok || info.kind == KindTerminal {
		return "", false
	}
	return info.segment, true
}

// KindOf returns the status kind, or ("", false) for unknown statuses.
func KindOf(s Status) (Kind, bool) {
	info, ok := statusIndex[s]
	if !ok {
		return "", false
	}
	return info.kind, true
}

// ApproverFor returns the designated approver role for a segment.
func ApproverFor(seg Segment) Role { return approvers[seg] }

// NextSegment returns the segment after seg on the forward path, or
// ("", false) when seg is the Final segment.
func NextSegment(seg Segment) (Segment, bool) {
	for i, s := range segmentOrder {
		if s == seg && i+1 < len(segmentOrder) {
			return segmentOrder[i+1], true
		}
	}
	return "", false
}

// SegmentIndex returns the position of seg on the forward path, -1 for
// unknown segments.
func SegmentIndex(seg Segment) int {
	for i, s := range segmentOrder {
		if s == seg {
			return i
		}
	}
	return -1
}

// Segments returns the forward path in order.
func Segments() []Segment {
	out := make([]Segment, len(segmentOrder))
	copy(out, segmentOrder)
	return out
}

// AllStatuses returns every defined status, segments in path order with
// the terminal Approved status last.
func AllStatuses() []Status {
	out := make([]Status, 0, len(statusIndex))
	for _, seg := range segmentOrder {
		out = append(out, DraftingStatus(seg), PendingStatus(seg), RejectedStatus(seg))
	}
	return append(out, StatusApproved)
}

// AllRoles returns every defined role.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleUser, RoleDeveloper, RoleFinanceApprover, RoleSalesManager, RoleFinalApprover}
}

// ValidRole reports whether r is one of the defined roles.
func ValidRole(r Role) bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}
