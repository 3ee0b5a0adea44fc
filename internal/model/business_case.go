package model

import (
	"time"

	"github.com/google/uuid"
)

// BusinessCase is one business case document moving through the staged
// approval workflow. Status is mutated only through validated workflow
// transitions; Version is the optimistic concurrency token and bumps on
// every mutation.
type BusinessCase struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner   *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Status  string    `gorm:"type:varchar(40);not null;index" json:"status"`

	Title            string `gorm:"type:varchar(255);not null" json:"title"`
	ProblemStatement string `gorm:"type:text" json:"problem_statement"`

	// Stage artifacts, one per segment. Opaque payloads owned by the
	// segment whose Drafting status permits editing them; the cost, value
	// and financial documents additionally decode into typed DTOs with
	// decimal money fields (see service.CostEstimateDoc and friends).
	ProductRequirements string `gorm:"type:text" json:"product_requirements"`
	SystemDesign        string `gorm:"type:text" json:"system_design"`
	EffortEstimate      string `gorm:"type:jsonb;default:'{}'" json:"effort_estimate"`
	CostEstimate        string `gorm:"type:jsonb;default:'{}'" json:"cost_estimate"`
	ValueProjection     string `gorm:"type:jsonb;default:'{}'" json:"value_projection"`
	FinancialSummary    string `gorm:"type:jsonb;default:'{}'" json:"financial_summary"`

	// Shareable gates third-party reads; settable only once Approved.
	Shareable bool `gorm:"not null;default:false" json:"shareable"`

	// Version strictly increases on every committed mutation. Writers
	// compare-and-swap on it; the loser of a race gets a conflict.
	Version int64 `gorm:"not null;default:1" json:"version"`

	History []CaseHistoryEntry `gorm:"foreignKey:CaseID" json:"history,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CaseHistoryEntry is one row of a case's append-only audit trail. Seq is
// assigned by the database at commit, so per-case ordering reflects
// commit order, not request arrival. Rows are never updated or deleted.
type CaseHistoryEntry struct {
	Seq        int64     `gorm:"primaryKey;autoIncrement" json:"seq"`
	CaseID     uuid.UUID `gorm:"type:uuid;not null;index" json:"case_id"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null" json:"actor_id"`
	Actor      *User     `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action     string    `gorm:"type:varchar(30);not null" json:"action"`
	FromStatus string    `gorm:"type:varchar(40);not null" json:"from_status"`
	ToStatus   string    `gorm:"type:varchar(40);not null" json:"to_status"`
	Comment    string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (CaseHistoryEntry) TableName() string {
	return "case_history"
}

// History actions for mutations that leave the status in place. Status
// transitions record their workflow action verb instead.
const (
	HistoryActionEditField    = "edit_field"
	HistoryActionSetShareable = "set_shareable"
)
