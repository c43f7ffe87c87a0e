package counterControllers

import (
	"context"
	"fmt"

	"github.com/junaidrashid-git/bookstore-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter names used for catalog ids.
const (
	Books      = "books"
	Categories = "categories"
)

// NextValue increments the named counter and returns the new value in one
// statement: INSERT ... ON CONFLICT (id) DO UPDATE SET seq = seq + 1
// RETURNING seq. A counter that does not exist yet starts at 1.
func NextValue(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	counter := models.Counter{ID: name, Seq: 1}
	err := db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"seq": gorm.Expr("counters.seq + 1"),
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "seq"}}},
	).Create(&counter).Error
	if err != nil {
		return 0, fmt.Errorf("next value for %s: %w", name, err)
	}
	return counter.Seq, nil
}

// ResetAll drops every counter. Only the seeder calls this.
func ResetAll(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.Counter{}).Error; err != nil {
		return fmt.Errorf("reset counters: %w", err)
	}
	return nil
}
