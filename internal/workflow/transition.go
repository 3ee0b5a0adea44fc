package workflow

import "errors"

// Action is a requested lifecycle operation on a business case.
type Action string

const (
	ActionSubmit        Action = "submit"
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionRegenerate    Action = "regenerate"
	ActionAdminOverride Action = "admin_override"
)

// AllActions returns every defined action.
func AllActions() []Action {
	return []Action{ActionSubmit, ActionApprove, ActionReject, ActionRegenerate, ActionAdminOverride}
}

var (
	// ErrInvalidTransition means the action is not legal from the current
	// status. Caller bug, not retryable.
	ErrInvalidTransition = errors.New("action not legal from current status")
	// ErrForbiddenRole means the actor's role is not authorized for this
	// edge. Not retryable by the same actor.
	ErrForbiddenRole = errors.New("role not authorized for this transition")
	// ErrMissingComment means a reject or override was attempted without a
	// reason. Retryable once the caller supplies one.
	ErrMissingComment = errors.New("a non-empty comment is required")
)

// Request carries everything Transition needs about the attempt. IsOwner
// is resolved by the caller against the case's owner id; Comment is the
// reject reason or override reason; Target is the override destination.
type Request struct {
	Action  Action
	Role    Role
	IsOwner bool
	Comment string
	Target  Status
}

// Edge is one guarded transition of the lifecycle graph. Approver is the
// role gate for approve/reject edges; OwnerGated edges (submit,
// regenerate) require the acting user to own the case. Admin passes every
// gate.
type Edge struct {
	From       Status
	Action     Action
	To         Status
	Approver   Role
	OwnerGated bool
}

var edgeSet = buildEdges()

func buildEdges() map[Status]map[Action]Edge {
	set := make(map[Status]map[Action]Edge)
	add := func(e Edge) {
		byAction, ok := set[e.From]
		if !ok {
			byAction = make(map[Action]Edge)
			set[e.From] = byAction
		}
		byAction[e.Action] = e
	}

	for _, seg := range Segments() {
		approveTo := StatusApproved
		if next, ok := NextSegment(seg); ok {
			approveTo = DraftingStatus(next)
		}

		add(Edge{From: DraftingStatus(seg), Action: ActionSubmit, To: PendingStatus(seg), OwnerGated: true})
		add(Edge{From: PendingStatus(seg), Action: ActionApprove, To: approveTo, Approver: ApproverFor(seg)})
		add(Edge{From: PendingStatus(seg), Action: ActionReject, To: RejectedStatus(seg), Approver: ApproverFor(seg)})
		// The rework loop: the only backward edge in the graph.
		add(Edge{From: RejectedStatus(seg), Action: ActionRegenerate, To: DraftingStatus(seg), OwnerGated: true})
	}
	return set
}

// Edges returns a flat copy of the guarded edge set, excluding the admin
// override escape hatch. The table is the canonical transition graph;
// tests and the storage-rule generator enumerate it.
func Edges() []Edge {
	var out []Edge
	for _, status := range AllStatuses() {
		for _, action := range AllActions() {
			if e, ok := edgeSet[status][action]; ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// Transition validates one lifecycle step and returns the resulting
// status. It is a pure function over the edge table: no state, no side
// effects. Error order: edge legality, then role gate, then comment
// requirement.
func Transition(current Status, req Request) (Status, error) {
	if req.Action == ActionAdminOverride {
		return adminOverride(current, req)
	}

	edge, ok := edgeSet[current][req.Action]
	if !ok {
		return "", ErrInvalidTransition
	}

	if req.Role != RoleAdmin {
		if edge.OwnerGated && !req.IsOwner {
			return "", ErrForbiddenRole
		}
		if edge.Approver != "" && req.Role != edge.Approver {
			return "", ErrForbiddenRole
		}
	}

	if req.Action == ActionReject && req.Comment == "" {
		return "", ErrMissingComment
	}

	return edge.To, nil
}

// adminOverride sets the status directly to any defined target. It sits
// outside the guarded graph and always requires a recorded reason.
func adminOverride(current Status, req Request) (Status, error) {
	if req.Role != RoleAdmin {
		return "", ErrForbiddenRole
	}
	if !req.Target.IsValid() {
		return "", ErrInvalidTransition
	}
	if req.Comment == "" {
		return "", ErrMissingComment
	}
	return req.Target, nil
}
