package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/linguaprep/exam-service/internal/repositories"
)

type repository struct {
	db       *gorm.DB
	group    repositories.GroupRepository
	question repositories.QuestionRepository
	task     repositories.TaskRepository
	attempt  repositories.AttemptRepository
}

// NewRepository wires the PostgreSQL-backed repository aggregate.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:       db,
		group:    NewGroupPostgreSQL(db),
		question: NewQuestionPostgreSQL(db),
		task:     NewTaskPostgreSQL(db),
		attempt:  NewAttemptPostgreSQL(db),
	}
}

func (r *repository) Group() repositories.GroupRepository       { return r.group }
func (r *repository) Question() repositories.QuestionRepository { return r.question }
func (r *repository) Task() repositories.TaskRepository         { return r.task }
func (r *repository) Attempt() repositories.AttemptRepository   { return r.attempt }

func (r *repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
