package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// GormStore is the Postgres-backed data store gateway.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// withAccess runs fn with elevated rights, or inside a transaction carrying the
// caller's JWT claims so row-level security policies apply.
func (s *GormStore) withAccess(ctx context.Context, access Access, fn func(tx *gorm.DB) error) error {
	db := s.DB.WithContext(ctx)
	if access.IsElevated() {
		return fn(db)
	}
	claims, err := json.Marshal(map[string]string{
		"sub":  access.UserID(),
		"role": "authenticated",
	})
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT set_config('request.jwt.claims', ?, true)", string(claims)).Error; err != nil {
			return fmt.Errorf("set request claims: %w", err)
		}
		return fn(tx)
	})
}

// ownedBy restricts a user-owned table to the caller when access is scoped.
func ownedBy(tx *gorm.DB, access Access) *gorm.DB {
	if access.IsElevated() {
		return tx
	}
	return tx.Where("user_id = ?", access.UserID())
}
