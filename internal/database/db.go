package database

import (
	"log"

	"backend/internal/model"
	"backend/internal/policy"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.AuditLog{},
		&model.BusinessCase{},
		&model.CaseHistoryEntry{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	// Storage-tier enforcement: recreate the row security policies
	// derived from the access control matrix. Idempotent on every boot.
	for _, stmt := range policy.RowPolicyStatements() {
		if err := db.Exec(stmt).Error; err != nil {
			log.Println("WARNING: Failed to apply row policy:", err)
		}
	}

	return db, nil
}
