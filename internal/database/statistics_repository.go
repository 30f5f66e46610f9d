package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// StatisticsRepository aggregates payment figures for admin reports
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// CourseSales returns per-course payment counts and confirmed revenue
func (r *StatisticsRepository) CourseSales(ctx context.Context) ([]CourseSales, error) {
	query := `
		SELECT c.id AS course_id, c.title,
			COALESCE(SUM(CASE WHEN p.status = 'confirmed' THEN 1 ELSE 0 END), 0) AS confirmed,
			COALESCE(SUM(CASE WHEN p.status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN p.status = 'cancelled' THEN 1 ELSE 0 END), 0) AS cancelled,
			COALESCE(SUM(CASE WHEN p.status = 'confirmed' THEN p.amount ELSE 0 END), 0) AS revenue
		FROM courses c
		LEFT JOIN payments p ON p.course_id = c.id
		GROUP BY c.id, c.title
		ORDER BY c.id
	`
	var sales []CourseSales
	if err := r.db.SelectContext(ctx, &sales, query); err != nil {
		return nil, fmt.Errorf("failed to get course sales: %w", err)
	}
	return sales, nil
}
