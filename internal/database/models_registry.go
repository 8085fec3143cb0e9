package database

import (
	"fmt"

	"github.com/rai-team-aiframe/dreamly/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the GORM models whose tables the migrations create.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Follow{},
		&models.Like{},
	}
}

// MissingTables lists the tables of PersistentModels not present in db.
func MissingTables(db *gorm.DB) ([]string, error) {
	var missing []string
	for _, m := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", m, err)
		}
		if !db.Migrator().HasTable(stmt.Schema.Table) {
			missing = append(missing, stmt.Schema.Table)
		}
	}
	return missing, nil
}
