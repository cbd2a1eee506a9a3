package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/linguaprep/exam-service/internal/models"
	"github.com/linguaprep/exam-service/internal/repositories"
)

type GroupPostgreSQL struct {
	db *gorm.DB
}

func NewGroupPostgreSQL(db *gorm.DB) repositories.GroupRepository {
	return &GroupPostgreSQL{db: db}
}

func (g GroupPostgreSQL) Create(ctx context.Context, group *models.QuestionGroup) error {
	return g.db.WithContext(ctx).Create(group).Error
}

func (g GroupPostgreSQL) GetByID(ctx context.Context, id uint) (*models.QuestionGroup, error) {
	var group models.QuestionGroup
	if err := g.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (g GroupPostgreSQL) GetByIDWithQuestions(ctx context.Context, id uint) (*models.QuestionGroup, error) {
	var group models.QuestionGroup
	if err := g.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("number_start asc")
		}).
		First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (g GroupPostgreSQL) Update(ctx context.Context, group *models.QuestionGroup) error {
	return g.db.WithContext(ctx).Save(group).Error
}

func (g GroupPostgreSQL) Delete(ctx context.Context, id uint) error {
	return g.db.WithContext(ctx).Delete(&models.QuestionGroup{}, id).Error
}

func (g GroupPostgreSQL) ListBySection(ctx context.Context, sectionID uint) ([]*models.QuestionGroup, error) {
	var groups []*models.QuestionGroup
	if err := g.db.WithContext(ctx).
		Where("section_id = ?", sectionID).
		Order(`"order" asc`).
		Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}
