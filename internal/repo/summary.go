package repo

import (
	"context"
	"time"

	"github.com/Gilad-Weinberger/Sikumon/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// summaryRow is a summary joined with its owner's profile.
type summaryRow struct {
	model.Summary
	UserFullName *string
	UserGrade    *string
}

const summaryJoinSelect = "summaries.*, users.full_name AS user_full_name, users.grade AS user_grade"

// ListSummaries returns one page of summaries and the total number of matches.
func (r *Records) ListSummaries(ctx context.Context, f model.SummaryFilters) ([]model.SummaryWithUser, int64, error) {
	f = f.Normalize()
	base := r.db.WithContext(ctx).Model(&model.Summary{})
	if f.Search != "" {
		p := likePattern(f.Search)
		base = base.Where("(LOWER(summaries.name) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(summaries.description, '')) LIKE ? ESCAPE '\\')", p, p)
	}
	if f.UserID != "" {
		base = base.Where("summaries.user_id = ?", f.UserID)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []summaryRow
	err := base.
		Select(summaryJoinSelect).
		Joins("LEFT JOIN users ON users.id = summaries.user_id").
		Order(clause.OrderByColumn{
			Column: clause.Column{Table: "summaries", Name: f.SortBy},
			Desc:   f.SortOrder == model.SortDesc,
		}).
		Limit(f.Limit).
		Offset(f.Offset()).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.SummaryWithUser, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Summary.WithUser(row.UserFullName))
	}
	return out, total, nil
}

// GetSummary returns the summary with its owner snapshot.
func (r *Records) GetSummary(ctx context.Context, id string) (*model.SummaryWithUser, error) {
	var rows []summaryRow
	err := r.db.WithContext(ctx).
		Model(&model.Summary{}).
		Select(summaryJoinSelect).
		Joins("LEFT JOIN users ON users.id = summaries.user_id").
		Where("summaries.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound("summary")
	}
	s := rows[0].Summary.WithUser(rows[0].UserFullName)
	return &s, nil
}

// InsertSummary stores a new summary, assigning id and timestamps.
func (r *Records) InsertSummary(ctx context.Context, s *model.Summary) (*model.Summary, error) {
	row := *s
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	row.UploadDate = now
	row.LastEditedAt = now
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateSummary updates the summary only when ownerID owns it.
func (r *Records) UpdateSummary(ctx context.Context, id, ownerID string, updates map[string]any) (*model.Summary, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.Summary{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(columnValues(updates))
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, notFound("summary")
	}
	var out model.Summary
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, mapErr(err, "summary")
	}
	return &out, nil
}

// DeleteSummary deletes the summary only when ownerID owns it.
func (r *Records) DeleteSummary(ctx context.Context, id, ownerID string) error {
	tx := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&model.Summary{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return notFound("summary")
	}
	return nil
}
