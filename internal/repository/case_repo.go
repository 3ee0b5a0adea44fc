package repository

import (
	"context"
	"errors"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrVersionConflict is returned when a guarded update finds the case's
// version column no longer matching the value the caller loaded. The
// caller must re-read and retry.
var ErrVersionConflict = errors.New("case version changed since read")

// CaseVisibility restricts List to the rows an actor may see. All short-
// circuits the filter (admin); otherwise a row is visible when it is
// owned by OwnerID, sits in one of PendingStatuses (approver queue), or
// is a shared approved case and IncludeShared is set.
type CaseVisibility struct {
	All             bool
	OwnerID         *uuid.UUID
	PendingStatuses []string
	IncludeShared   bool
}

type CaseRepository interface {
	Create(ctx context.Context, c *model.BusinessCase) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.BusinessCase, error)
	FindByIDWithHistory(ctx context.Context, id uuid.UUID) (*model.BusinessCase, error)
	List(ctx context.Context, vis CaseVisibility, page, limit int) ([]model.BusinessCase, int64, error)
	UpdateWithVersion(ctx context.Context, c *model.BusinessCase, expectedVersion int64) error
	AppendHistory(ctx context.Context, entry *model.CaseHistoryEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type caseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &caseRepository{db: db}
}

func (r *caseRepository) Create(ctx context.Context, c *model.BusinessCase) error {
	return GetDB(ctx, r.db).Create(c).Error
}

func (r *caseRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.BusinessCase, error) {
	var c model.BusinessCase
	if err := GetDB(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) FindByIDWithHistory(ctx context.Context, id uuid.UUID) (*model.BusinessCase, error) {
	var c model.BusinessCase
	err := GetDB(ctx, r.db).
		Preload("Owner").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) List(ctx context.Context, vis CaseVisibility, page, limit int) ([]model.BusinessCase, int64, error) {
	db := GetDB(ctx, r.db)
	query := db.Model(&model.BusinessCase{})
	query = applyVisibility(query, vis)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	var cases []model.BusinessCase
	fetch := applyVisibility(db.Preload("Owner"), vis)
	if err := fetch.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&cases).Error; err != nil {
		return nil, 0, err
	}

	return cases, total, nil
}

func applyVisibility(query *gorm.DB, vis CaseVisibility) *gorm.DB {
	if vis.All {
		return query
	}

	var clauses []string
	var args []interface{}
	if vis.OwnerID != nil {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, *vis.OwnerID)
	}
	if len(vis.PendingStatuses) > 0 {
		clauses = append(clauses, "status IN ?")
		args = append(args, vis.PendingStatuses)
	}
	if vis.IncludeShared {
		clauses = append(clauses, "(shareable = true AND status = ?)")
		args = append(args, string(workflow.StatusApproved))
	}
	if len(clauses) == 0 {
		// Deny-by-default: an empty visibility matches nothing.
		return query.Where("1 = 0")
	}

	where := clauses[0]
	for _, c := range clauses[1:] {
		where += " OR " + c
	}
	return query.Where(where, args...)
}

// UpdateWithVersion persists the mutated case only if the stored version
// still equals expectedVersion. The single guarded UPDATE is what
// serializes concurrent writers on one case.
func (r *caseRepository) UpdateWithVersion(ctx context.Context, c *model.BusinessCase, expectedVersion int64) error {
	res := GetDB(ctx, r.db).
		Model(&model.BusinessCase{}).
		Where("id = ? AND version = ?", c.ID, expectedVersion).
		Select(
			"status", "title", "problem_statement",
			"product_requirements", "system_design", "effort_estimate",
			"cost_estimate", "value_projection", "financial_summary",
			"shareable", "version", "updated_at",
		).
		Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *caseRepository) AppendHistory(ctx context.Context, entry *model.CaseHistoryEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *caseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("case_id = ?", id).Delete(&model.CaseHistoryEntry{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.BusinessCase{}).Error
}
