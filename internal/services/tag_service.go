package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "dualledger/internal/errors"
	"dualledger/internal/models"
	"dualledger/internal/pagination"
	"dualledger/internal/validator"
)

// tagService handles tag-related business logic.
type tagService struct {
	db *gorm.DB
}

// NewTagService creates a new TagServicer.
func NewTagService(db *gorm.DB) TagServicer {
	return &tagService{db: db}
}

// CreateTag creates a tag. Names are sanitized and compared case-insensitively
// within the user's tags.
func (s *tagService) CreateTag(userID, name, color string) (*models.Tag, error) {
	name = validator.Sanitize(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "tag name is required")
	}

	var existing int64
	if err := s.db.Model(&models.Tag{}).
		Where("user_id = ? AND LOWER(name) = ?", userID, strings.ToLower(name)).
		Count(&existing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing > 0 {
		return nil, apperrors.ErrDuplicateTag
	}

	tag := &models.Tag{UserID: userID, Name: name, Color: color}
	if err := s.db.Create(tag).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tag, nil
}

// GetUserTags returns a paginated list of the user's tags ordered by name.
func (s *tagService) GetUserTags(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Tag], error) {
	base := s.db.Model(&models.Tag{}).Where("user_id = ?", userID)
	result, err := pagination.Query[models.Tag](base, page, pagination.OrderBy("name ASC"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetTagByID returns a tag by ID if it belongs to the user.
func (s *tagService) GetTagByID(userID, tagID string) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.Where("id = ? AND user_id = ?", tagID, userID).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTagNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &tag, nil
}

// DeleteTag removes a tag, detaching it from transactions and fixed expenses
// and dropping the budgets scoped to it. Transactions themselves are kept.
func (s *tagService) DeleteTag(userID, tagID string) error {
	tag, err := s.GetTagByID(userID, tagID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM transaction_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Exec("DELETE FROM fixed_expense_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Where("user_id = ? AND tag_id = ?", userID, tag.ID).Delete(&models.Budget{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		// Hard delete so the name can be reused under the unique index.
		if err := tx.Unscoped().Delete(tag).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// loadUserTags resolves tagIDs to the user's tags, preserving the given order
// and dropping duplicates. Any unknown id fails with ErrTagNotFound.
func loadUserTags(db *gorm.DB, userID string, tagIDs []string) ([]models.Tag, error) {
	ids := make([]string, 0, len(tagIDs))
	seen := make(map[string]bool, len(tagIDs))
	for _, id := range tagIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}

	var found []models.Tag
	if err := db.Where("user_id = ? AND id IN ?", userID, ids).Find(&found).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byID := make(map[string]models.Tag, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	tags := make([]models.Tag, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, apperrors.ErrTagNotFound
		}
		tags = append(tags, t)
	}
	return tags, nil
}
