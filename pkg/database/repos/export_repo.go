package repos

import (
	"github.com/tauraamui/pocketcam/pkg/database/dbconn"
	"github.com/tauraamui/pocketcam/pkg/database/models"
	"github.com/tauraamui/xerror"
)

const defaultRecentLimit = 10

type ExportRepository struct {
	DB dbconn.GormWrapper
}

func (r *ExportRepository) Create(export *models.Export) error {
	return r.DB.Create(export).Error()
}

func (r *ExportRepository) FindByUUID(uuid string) (models.Export, error) {
	export := models.Export{}
	if err := r.DB.Where("uuid = ?", uuid).First(&export).Error(); err != nil {
		return export, xerror.Errorf("export of uuid %s not found", uuid)
	}

	return export, nil
}

func (r *ExportRepository) Recent(limit int) ([]models.Export, error) {
	if limit < 1 {
		limit = defaultRecentLimit
	}

	exports := []models.Export{}
	if err := r.DB.Order("created_at desc").Limit(limit).Find(&exports).Error(); err != nil {
		return nil, xerror.Errorf("unable to list recent exports: %w", err)
	}

	return exports, nil
}
