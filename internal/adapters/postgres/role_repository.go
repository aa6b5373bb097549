package postgres

import (
	"context"
	"errors"

	"github.com/etherna/sso/internal/domain"
	"gorm.io/gorm"
)

type roleRepository struct {
	db *gorm.DB
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	rec := roleModel{
		RoleID:         role.ID,
		Name:           role.Name,
		NormalizedName: role.NormalizedName,
		CreatedAt:      role.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *roleRepository) GetByNormalizedName(ctx context.Context, normalized string) (*domain.Role, error) {
	var rec roleModel
	if err := r.db.WithContext(ctx).
		Where("normalized_name = ?", normalized).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDomainRole(rec), nil
}

func (r *roleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	var rows []roleModel
	if err := r.db.WithContext(ctx).Order("normalized_name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*domain.Role, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainRole(row))
	}
	return result, nil
}
