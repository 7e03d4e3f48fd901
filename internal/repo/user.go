package repo

import (
	"context"
	"time"

	"github.com/Gilad-Weinberger/Sikumon/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListUsers returns one page of profiles, newest first.
func (r *Records) ListUsers(ctx context.Context, f model.UserFilters) ([]model.User, int64, error) {
	f = f.Normalize()
	q := r.db.WithContext(ctx).Model(&model.User{})
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("(LOWER(COALESCE(full_name, '')) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\')", p, p)
	}
	if f.Grade != "" {
		q = q.Where("grade = ?", f.Grade)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	users := []model.User{}
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset()).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// GetUser returns the profile with the given id.
func (r *Records) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, mapErr(err, "user")
	}
	return &u, nil
}

// UpsertUser creates the profile or overwrites email, full name and grade.
func (r *Records) UpsertUser(ctx context.Context, u *model.User) (*model.User, error) {
	now := time.Now().UTC()
	row := model.User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Grade:     u.Grade,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "grade", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return r.GetUser(ctx, u.ID)
}

// UpdateUser applies updates to the profile.
func (r *Records) UpdateUser(ctx context.Context, id string, updates map[string]any) (*model.User, error) {
	tx := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(columnValues(updates))
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, notFound("user")
	}
	return r.GetUser(ctx, id)
}

// DeleteUser removes the profile. Deleting a missing profile is not an error.
func (r *Records) DeleteUser(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{}).Error
}
