package repository

import (
	"fmt"

	"gorm.io/gorm"

	"taskhub/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) Exists(userID uint, token string) (bool, error) {
	var count int64
	if err := r.db.Model(&model.Session{}).
		Where("user_id = ? AND token = ?", userID, token).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("query session failed: %w", err)
	}
	return count > 0, nil
}

func (r *SessionRepository) ListTokensByUser(userID uint) ([]string, error) {
	var tokens []string
	if err := r.db.Model(&model.Session{}).
		Where("user_id = ?", userID).
		Pluck("token", &tokens).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return tokens, nil
}

func (r *SessionRepository) DeleteByUserAndToken(userID uint, token string) error {
	if err := r.db.Where("user_id = ? AND token = ?", userID, token).
		Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteAllByUser(userID uint) error {
	if err := r.db.Where("user_id = ?", userID).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete sessions failed: %w", err)
	}
	return nil
}
