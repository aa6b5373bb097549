package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/etherna/sso/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type invitationRepository struct {
	db *gorm.DB
}

func (r *invitationRepository) Create(ctx context.Context, invitation *domain.Invitation) error {
	rec := invitationModel{
		InvitationID: invitation.ID,
		Code:         invitation.Code,
		EmitterID:    invitation.EmitterID,
		EndLife:      invitation.EndLife,
		IsSingleUse:  invitation.IsSingleUse,
		IsFromAdmin:  invitation.IsFromAdmin,
		CreatedAt:    invitation.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *invitationRepository) GetByCode(ctx context.Context, code uuid.UUID) (*domain.Invitation, error) {
	var rec invitationModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toDomainInvitation(rec), nil
}

func (r *invitationRepository) Delete(ctx context.Context, invitation *domain.Invitation) error {
	res := r.db.WithContext(ctx).
		Where("invitation_id = ?", invitation.ID).
		Delete(&invitationModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *invitationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("end_life IS NOT NULL").
		Where("end_life < ?", now).
		Delete(&invitationModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
