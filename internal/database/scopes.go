package database

import (
	"gorm.io/gorm"

	"github.com/worktrackhq/work-tracking-api/internal/utils"
)

// Paginate applies a page window to a list query.
func Paginate(p utils.PageParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.Limit)
	}
}
