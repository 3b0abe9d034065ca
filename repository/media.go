package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-gateway/entity"
	"gorm.io/gorm"
)

var (
	ErrMediaNotFound  = errors.New("media not found")
	ErrDuplicateMedia = errors.New("media already exists at this location")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize clamps the page window to sane bounds.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

type MediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) Create(ctx context.Context, media *entity.Media) error {
	if err := r.db.WithContext(ctx).Create(media).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to insert media: %w", ErrDuplicateMedia)
		}
		return fmt.Errorf("failed to insert media: %w", err)
	}
	return nil
}

// FindByIDAndOwner never tells a missing record apart from one owned by someone else.
func (r *MediaRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*entity.Media, error) {
	var media entity.Media
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&media).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to find media: %w", err)
	}
	return &media, nil
}

func (r *MediaRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Media, error) {
	var media entity.Media
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&media).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to find media: %w", err)
	}
	return &media, nil
}

func (r *MediaRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, opts ListOptions) ([]entity.Media, error) {
	opts = opts.Normalize()
	var items []entity.Media
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	return items, nil
}

func (r *MediaRepository) ListAll(ctx context.Context, opts ListOptions) ([]entity.Media, error) {
	opts = opts.Normalize()
	var items []entity.Media
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	return items, nil
}

func (r *MediaRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Media{}).Where("user_id = ?", ownerID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return count, nil
}

func (r *MediaRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.Media{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return count, nil
}

func (r *MediaRepository) DeleteByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&entity.Media{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete media: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMediaNotFound
	}
	return nil
}
