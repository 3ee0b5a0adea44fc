package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"backend/internal/model"
	"backend/internal/policy"
	"backend/internal/repository"
	"backend/internal/workflow"
	"backend/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

// Actor is the verified identity + role claim attached to every request.
type Actor struct {
	ID   uuid.UUID
	Role workflow.Role
}

type CreateCaseRequest struct {
	Title            string `json:"title" binding:"required"`
	ProblemStatement string `json:"problem_statement" binding:"required"`
}

type RejectCaseRequest struct {
	Reason string `json:"reason"`
}

type AdminOverrideRequest struct {
	TargetStatus string `json:"target_status" binding:"required"`
	Reason       string `json:"reason"`
}

type SetShareableRequest struct {
	Shareable *bool `json:"shareable" binding:"required"`
}

type HistoryEntryResponse struct {
	Seq        int64  `json:"seq"`
	ActorID    string `json:"actor_id"`
	Action     string `json:"action"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Comment    string `json:"comment,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type CaseResponse struct {
	ID                  string                 `json:"id"`
	OwnerID             string                 `json:"owner_id"`
	OwnerName           string                 `json:"owner_name,omitempty"`
	Status              string                 `json:"status"`
	Title               string                 `json:"title"`
	ProblemStatement    string                 `json:"problem_statement"`
	ProductRequirements string                 `json:"product_requirements"`
	SystemDesign        string                 `json:"system_design"`
	EffortEstimate      string                 `json:"effort_estimate"`
	CostEstimate        string                 `json:"cost_estimate"`
	ValueProjection     string                 `json:"value_projection"`
	FinancialSummary    string                 `json:"financial_summary"`
	Shareable           bool                   `json:"shareable"`
	Version             int64                  `json:"version"`
	History             []HistoryEntryResponse `json:"history,omitempty"`
	CreatedAt           string                 `json:"created_at"`
	UpdatedAt           string                 `json:"updated_at"`
}

type CaseSummary struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	OwnerName string `json:"owner_name,omitempty"`
	Status    string `json:"status"`
	Title     string `json:"title"`
	Shareable bool   `json:"shareable"`
	UpdatedAt string `json:"updated_at"`
}

// Structured stage payloads. Cost, value and financial documents carry
// money as decimals so rollup arithmetic stays exact.

type CostEstimateDoc struct {
	CapexUSD      decimal.Decimal `json:"capex_usd"`
	OpexAnnualUSD decimal.Decimal `json:"opex_annual_usd"`
	Assumptions   string          `json:"assumptions,omitempty"`
}

type ValueProjectionDoc struct {
	AnnualValueUSD decimal.Decimal `json:"annual_value_usd"`
	HorizonYears   int64           `json:"horizon_years"`
	Assumptions    string          `json:"assumptions,omitempty"`
}

type FinancialSummaryDoc struct {
	TotalCostUSD  decimal.Decimal `json:"total_cost_usd"`
	TotalValueUSD decimal.Decimal `json:"total_value_usd"`
	NetValueUSD   decimal.Decimal `json:"net_value_usd"`
	PaybackMonths decimal.Decimal `json:"payback_months"`
	Commentary    string          `json:"commentary,omitempty"`
}

// --- Interface ---

type CaseService interface {
	CreateCase(ctx context.Context, actor Actor, req CreateCaseRequest) (*CaseResponse, error)
	GetCase(ctx context.Context, actor Actor, id string) (*CaseResponse, error)
	ListCases(ctx context.Context, actor Actor, page, limit int) ([]CaseSummary, int64, error)
	EditField(ctx context.Context, actor Actor, id, field, value string) (*CaseResponse, error)
	Submit(ctx context.Context, actor Actor, id string) (*CaseResponse, error)
	Approve(ctx context.Context, actor Actor, id string) (*CaseResponse, error)
	Reject(ctx context.Context, actor Actor, id string, reason string) (*CaseResponse, error)
	Regenerate(ctx context.Context, actor Actor, id string) (*CaseResponse, error)
	AdminOverride(ctx context.Context, actor Actor, id string, req AdminOverrideRequest) (*CaseResponse, error)
	SetShareable(ctx context.Context, actor Actor, id string, shareable bool) (*CaseResponse, error)
	DeleteCase(ctx context.Context, actor Actor, id string) error
}

type caseService struct {
	cases  repository.CaseRepository
	audits repository.AuditRepository
	txm    repository.TransactionManager
	events EventPublisher
	now    func() time.Time
}

func NewCaseService(cases repository.CaseRepository, audits repository.AuditRepository, txm repository.TransactionManager, events EventPublisher) CaseService {
	if events == nil {
		events = NopPublisher{}
	}
	return &caseService{
		cases:  cases,
		audits: audits,
		txm:    txm,
		events: events,
		now:    time.Now,
	}
}

// --- Implementation ---

func (s *caseService) CreateCase(ctx context.Context, actor Actor, req CreateCaseRequest) (*CaseResponse, error) {
	bc := &model.BusinessCase{
		OwnerID:          actor.ID,
		Status:           string(workflow.InitialStatus()),
		Title:            req.Title,
		ProblemStatement: req.ProblemStatement,
		Version:          1,
		UpdatedAt:        s.now(),
	}

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.cases.Create(txCtx, bc); createErr != nil {
			return fmt.Errorf("failed to create business case: %w", createErr)
		}
		return s.writeAudit(txCtx, actor, model.ActionCreateCase, bc, map[string]interface{}{
			"title": req.Title,
		})
	})
	if err != nil {
		return nil, err
	}

	return toCaseResponse(bc), nil
}

func (s *caseService) GetCase(ctx context.Context, actor Actor, id string) (*CaseResponse, error) {
	caseID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	bc, err := s.cases.FindByIDWithHistory(ctx, caseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load business case: %w", err)
	}

	if !policy.CanRead(actor.Role, actor.ID.String(), caseViewOf(bc)) {
		return nil, ErrPermissionDenied
	}

	return toCaseResponse(bc), nil
}

func (s *caseService) ListCases(ctx context.Context, actor Actor, page, limit int) ([]CaseSummary, int64, error) {
	page, limit = pagination.Normalize(page, limit)

	vis := visibilityFor(actor)
	cases, total, err := s.cases.List(ctx, vis, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list business cases: %w", err)
	}

	out := make([]CaseSummary, 0, len(cases))
	for i := range cases {
		out = append(out, toCaseSummary(&cases[i]))
	}
	return out, total, nil
}

// visibilityFor maps the read matrix onto a repository filter: own cases
// always, the pending-review queue for approver roles, shared approved
// cases for everyone, everything for admin.
func visibilityFor(actor Actor) repository.CaseVisibility {
	if actor.Role == workflow.RoleAdmin {
		return repository.CaseVisibility{All: true}
	}
	ownerID := actor.ID
	vis := repository.CaseVisibility{
		OwnerID:       &ownerID,
		IncludeShared: true,
	}
	for _, st := range policy.PendingStatusesFor(actor.Role) {
		vis.PendingStatuses = append(vis.PendingStatuses, string(st))
	}
	return vis
}

func (s *caseService) EditField(ctx context.Context, actor Actor, id, field, value string) (*CaseResponse, error) {
	if _, ok := policy.FieldSegment(field); !ok {
		return nil, ErrUnknownField
	}

	bc, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanEditField(actor.Role, actor.ID.String(), caseViewOf(bc), field) {
		return nil, ErrPermissionDenied
	}

	if err := validateStagePayload(field, value); err != nil {
		return nil, err
	}

	loadedVersion := bc.Version
	setField(bc, field, value)
	bc.Version++
	bc.UpdatedAt = s.now()

	entry := &model.CaseHistoryEntry{
		CaseID:     bc.ID,
		ActorID:    actor.ID,
		Action:     model.HistoryActionEditField,
		FromStatus: bc.Status,
		ToStatus:   bc.Status,
		Comment:    field,
		CreatedAt:  bc.UpdatedAt,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updErr := s.cases.UpdateWithVersion(txCtx, bc, loadedVersion); updErr != nil {
			return updErr
		}
		if histErr := s.cases.AppendHistory(txCtx, entry); histErr != nil {
			return fmt.Errorf("failed to append case history: %w", histErr)
		}
		return s.writeAudit(txCtx, actor, model.ActionEditCaseField, bc, map[string]interface{}{
			"field": field,
		})
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	return toCaseResponse(bc), nil
}

func (s *caseService) Submit(ctx context.Context, actor Actor, id string) (*CaseResponse, error) {
	return s.applyTransition(ctx, actor, id, workflow.ActionSubmit, "", "", model.ActionSubmitCase)
}

func (s *caseService) Approve(ctx context.Context, actor Actor, id string) (*CaseResponse, error) {
	return s.applyTransition(ctx, actor, id, workflow.ActionApprove, "", "", model.ActionApproveCase)
}

func (s *caseService) Reject(ctx context.Context, actor Actor, id string, reason string) (*CaseResponse, error) {
	return s.applyTransition(ctx, actor, id, workflow.ActionReject, reason, "", model.ActionRejectCase)
}

func (s *caseService) Regenerate(ctx context.Context, actor Actor, id string) (*CaseResponse, error) {
	return s.applyTransition(ctx, actor, id, workflow.ActionRegenerate, "", "", model.ActionRegenerate)
}

func (s *caseService) AdminOverride(ctx context.Context, actor Actor, id string, req AdminOverrideRequest) (*CaseResponse, error) {
	return s.applyTransition(ctx, actor, id, workflow.ActionAdminOverride, req.Reason, workflow.Status(req.TargetStatus), model.ActionAdminOverride)
}

// applyTransition is the read-check-act-commit path shared by every
// status-changing operation: load, policy pre-gate, workflow validation,
// then a version-guarded update plus one history entry and one audit row
// in a single transaction, with the domain event emitted after commit.
func (s *caseService) applyTransition(ctx context.Context, actor Actor, id string, action workflow.Action, comment string, target workflow.Status, auditAction string) (*CaseResponse, error) {
	bc, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}

	isOwner := bc.OwnerID == actor.ID
	if !policy.CanAttempt(actor.Role, isOwner, action) {
		return nil, ErrPermissionDenied
	}

	fromStatus := workflow.Status(bc.Status)
	nextStatus, err := workflow.Transition(fromStatus, workflow.Request{
		Action:  action,
		Role:    actor.Role,
		IsOwner: isOwner,
		Comment: comment,
		Target:  target,
	})
	if err != nil {
		return nil, err
	}

	loadedVersion := bc.Version
	bc.Status = string(nextStatus)
	bc.Version++
	bc.UpdatedAt = s.now()

	// Approving the Value review moves the case into the Financial
	// segment; seed its rollup draft from the costed figures.
	if nextStatus == workflow.DraftingStatus(workflow.SegmentFinancial) && action == workflow.ActionApprove {
		if summary, ok := buildFinancialSummary(bc.CostEstimate, bc.ValueProjection); ok {
			bc.FinancialSummary = summary
		}
	}

	entry := &model.CaseHistoryEntry{
		CaseID:     bc.ID,
		ActorID:    actor.ID,
		Action:     string(action),
		FromStatus: string(fromStatus),
		ToStatus:   string(nextStatus),
		Comment:    comment,
		CreatedAt:  bc.UpdatedAt,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updErr := s.cases.UpdateWithVersion(txCtx, bc, loadedVersion); updErr != nil {
			return updErr
		}
		if histErr := s.cases.AppendHistory(txCtx, entry); histErr != nil {
			return fmt.Errorf("failed to append case history: %w", histErr)
		}
		return s.writeAudit(txCtx, actor, auditAction, bc, map[string]interface{}{
			"from_status": string(fromStatus),
			"to_status":   string(nextStatus),
			"comment":     comment,
		})
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.events.PublishTransition(TransitionEvent{
		CaseID:     bc.ID.String(),
		FromStatus: string(fromStatus),
		ToStatus:   string(nextStatus),
		ActorID:    actor.ID.String(),
		Timestamp:  bc.UpdatedAt,
	})

	return toCaseResponse(bc), nil
}

func (s *caseService) SetShareable(ctx context.Context, actor Actor, id string, shareable bool) (*CaseResponse, error) {
	bc, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanSetShareable(actor.Role, actor.ID.String(), caseViewOf(bc)) {
		return nil, ErrPermissionDenied
	}

	loadedVersion := bc.Version
	bc.Shareable = shareable
	bc.Version++
	bc.UpdatedAt = s.now()

	entry := &model.CaseHistoryEntry{
		CaseID:     bc.ID,
		ActorID:    actor.ID,
		Action:     model.HistoryActionSetShareable,
		FromStatus: bc.Status,
		ToStatus:   bc.Status,
		Comment:    strconv.FormatBool(shareable),
		CreatedAt:  bc.UpdatedAt,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updErr := s.cases.UpdateWithVersion(txCtx, bc, loadedVersion); updErr != nil {
			return updErr
		}
		if histErr := s.cases.AppendHistory(txCtx, entry); histErr != nil {
			return fmt.Errorf("failed to append case history: %w", histErr)
		}
		return s.writeAudit(txCtx, actor, model.ActionSetShareable, bc, map[string]interface{}{
			"shareable": shareable,
		})
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	return toCaseResponse(bc), nil
}

func (s *caseService) DeleteCase(ctx context.Context, actor Actor, id string) error {
	if !policy.CanDelete(actor.Role) {
		return ErrPermissionDenied
	}

	bc, err := s.loadCase(ctx, id)
	if err != nil {
		return err
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.cases.Delete(txCtx, bc.ID); delErr != nil {
			return fmt.Errorf("failed to delete business case: %w", delErr)
		}
		return s.writeAudit(txCtx, actor, model.ActionDeleteCase, bc, map[string]interface{}{
			"status": bc.Status,
		})
	})
}

// --- Helpers ---

func (s *caseService) loadCase(ctx context.Context, id string) (*model.BusinessCase, error) {
	caseID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	bc, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load business case: %w", err)
	}
	return bc, nil
}

func (s *caseService) writeAudit(ctx context.Context, actor Actor, action string, bc *model.BusinessCase, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	actorID := actor.ID
	entry := &model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   bc.ID.String(),
		EntityName: bc.Title,
		Details:    string(payload),
	}
	if err := s.audits.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func mapRepoError(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return ErrConflict
	}
	return err
}

func caseViewOf(bc *model.BusinessCase) policy.CaseView {
	return policy.CaseView{
		OwnerID:   bc.OwnerID.String(),
		Status:    workflow.Status(bc.Status),
		Shareable: bc.Shareable,
	}
}

func setField(bc *model.BusinessCase, field, value string) {
	switch field {
	case policy.FieldTitle:
		bc.Title = value
	case policy.FieldProblemStatement:
		bc.ProblemStatement = value
	case policy.FieldProductRequirements:
		bc.ProductRequirements = value
	case policy.FieldSystemDesign:
		bc.SystemDesign = value
	case policy.FieldEffortEstimate:
		bc.EffortEstimate = value
	case policy.FieldCostEstimate:
		bc.CostEstimate = value
	case policy.FieldValueProjection:
		bc.ValueProjection = value
	case policy.FieldFinancialSummary:
		bc.FinancialSummary = value
	}
}

// validateStagePayload rejects structurally broken payloads before they
// reach the store. The jsonb stage documents must at least be valid JSON;
// the money-bearing ones must decode into their typed forms.
func validateStagePayload(field, value string) error {
	switch field {
	case policy.FieldEffortEstimate:
		if !json.Valid([]byte(value)) {
			return fmt.Errorf("%w: %s is not valid JSON", ErrInvalidPayload, field)
		}
	case policy.FieldCostEstimate:
		var doc CostEstimateDoc
		if err := json.Unmarshal([]byte(value), &doc); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, field, err)
		}
		if doc.CapexUSD.IsNegative() || doc.OpexAnnualUSD.IsNegative() {
			return fmt.Errorf("%w: %s: amounts must not be negative", ErrInvalidPayload, field)
		}
	case policy.FieldValueProjection:
		var doc ValueProjectionDoc
		if err := json.Unmarshal([]byte(value), &doc); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, field, err)
		}
		if doc.AnnualValueUSD.IsNegative() || doc.HorizonYears < 0 {
			return fmt.Errorf("%w: %s: amounts must not be negative", ErrInvalidPayload, field)
		}
	case policy.FieldFinancialSummary:
		var doc FinancialSummaryDoc
		if err := json.Unmarshal([]byte(value), &doc); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, field, err)
		}
	}
	return nil
}

// buildFinancialSummary computes the rollup from the costed figures and
// the value projection. Returns ok=false when either document is absent
// or malformed, in which case the existing summary is left alone.
func buildFinancialSummary(costJSON, valueJSON string) (string, bool) {
	var cost CostEstimateDoc
	var value ValueProjectionDoc
	if err := json.Unmarshal([]byte(costJSON), &cost); err != nil {
		return "", false
	}
	if err := json.Unmarshal([]byte(valueJSON), &value); err != nil {
		return "", false
	}

	horizon := value.HorizonYears
	if horizon <= 0 {
		horizon = 3
	}
	years := decimal.NewFromInt(horizon)

	totalCost := cost.CapexUSD.Add(cost.OpexAnnualUSD.Mul(years))
	totalValue := value.AnnualValueUSD.Mul(years)
	net := totalValue.Sub(totalCost)

	payback := decimal.Zero
	if value.AnnualValueUSD.IsPositive() {
		monthly := value.AnnualValueUSD.Div(decimal.NewFromInt(12))
		payback = totalCost.Div(monthly).Round(1)
	}

	doc := FinancialSummaryDoc{
		TotalCostUSD:  totalCost,
		TotalValueUSD: totalValue,
		NetValueUSD:   net,
		PaybackMonths: payback,
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func toCaseSummary(bc *model.BusinessCase) CaseSummary {
	summary := CaseSummary{
		ID:        bc.ID.String(),
		OwnerID:   bc.OwnerID.String(),
		Status:    bc.Status,
		Title:     bc.Title,
		Shareable: bc.Shareable,
		UpdatedAt: bc.UpdatedAt.Format(time.RFC3339),
	}
	if bc.Owner != nil {
		summary.OwnerName = bc.Owner.Username
	}
	return summary
}

func toCaseResponse(bc *model.BusinessCase) *CaseResponse {
	resp := &CaseResponse{
		ID:                  bc.ID.String(),
		OwnerID:             bc.OwnerID.String(),
		Status:              bc.Status,
		Title:               bc.Title,
		ProblemStatement:    bc.ProblemStatement,
		ProductRequirements: bc.ProductRequirements,
		SystemDesign:        bc.SystemDesign,
		EffortEstimate:      bc.EffortEstimate,
		CostEstimate:        bc.CostEstimate,
		ValueProjection:     bc.ValueProjection,
		FinancialSummary:    bc.FinancialSummary,
		Shareable:           bc.Shareable,
		Version:             bc.Version,
		CreatedAt:           bc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           bc.UpdatedAt.Format(time.RFC3339),
	}
	if bc.Owner != nil {
		resp.OwnerName = bc.Owner.Username
	}
	for _, h := range bc.History {
		resp.History = append(resp.History, HistoryEntryResponse{
			Seq:        h.Seq,
			ActorID:    h.ActorID.String(),
			Action:     h.Action,
			FromStatus: h.FromStatus,
			ToStatus:   h.ToStatus,
			Comment:    h.Comment,
			CreatedAt:  h.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}
