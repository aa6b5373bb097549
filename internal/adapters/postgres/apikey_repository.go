package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/etherna/sso/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type apiKeyRepository struct {
	db *gorm.DB
}

func (r *apiKeyRepository) Create(ctx context.Context, key *domain.ApiKey) error {
	rec := toApiKeyModel(key)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *apiKeyRepository) Update(ctx context.Context, keys ...*domain.ApiKey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range keys {
			rec := toApiKeyModel(key)
			res := tx.Model(&apiKeyModel{}).
				Where("key_id = ?", rec.KeyID).
				Select("*").
				Omit("key_id", "created_at").
				Updates(&rec)
			if res.Error != nil {
				if isUniqueViolation(res.Error) {
					return domain.ErrConflict
				}
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.ErrNotFound
			}
		}
		return nil
	})
}

func (r *apiKeyRepository) Delete(ctx context.Context, key *domain.ApiKey) error {
	res := r.db.WithContext(ctx).
		Where("key_id = ?", key.ID).
		Delete(&apiKeyModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *apiKeyRepository) GetByID(ctx context.Context, owner uuid.UUID, id uuid.UUID) (*domain.ApiKey, error) {
	var rec apiKeyModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Where("key_id = ?", id).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDomainApiKey(rec), nil
}

func (r *apiKeyRepository) GetByHashAndOwner(ctx context.Context, keyHash string, owner uuid.UUID) (*domain.ApiKey, error) {
	var rec apiKeyModel
	if err := r.db.WithContext(ctx).
		Where("key_hash = ?", keyHash).
		Where("owner_id = ?", owner).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDomainApiKey(rec), nil
}

func (r *apiKeyRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.ApiKey, error) {
	var rows []apiKeyModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*domain.ApiKey, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainApiKey(row))
	}
	return result, nil
}

func (r *apiKeyRepository) CountAliveByOwner(ctx context.Context, owner uuid.UUID, now time.Time) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&apiKeyModel{}).
		Where("owner_id = ?", owner).
		Where("end_of_life IS NULL OR end_of_life >= ?", now).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func toApiKeyModel(key *domain.ApiKey) apiKeyModel {
	return apiKeyModel{
		KeyID:     key.ID,
		KeyHash:   key.KeyHash,
		Label:     key.Label,
		EndOfLife: key.EndOfLife,
		OwnerID:   key.OwnerID,
		CreatedAt: key.CreatedAt,
	}
}
