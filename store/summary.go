package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/Issafulldev/notbroke/cache"
)

// resolveDateRange fills in missing period bounds: no bounds means "the
// current month so far", a single bound collapses the range to that day.
func (s *Store) resolveDateRange(start, end *time.Time) (time.Time, time.Time, error) {
	if start != nil && end != nil && start.After(*end) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	now := s.now().UTC()
	switch {
	case start == nil && end == nil:
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return firstOfMonth, now, nil
	case start == nil:
		return end.UTC(), end.UTC(), nil
	case end == nil:
		return start.UTC(), start.UTC(), nil
	default:
		return start.UTC(), end.UTC(), nil
	}
}

func periodLabel(start, end time.Time) string {
	if start.Format("2006-01-02") == end.Format("2006-01-02") {
		return start.Format("2006-01-02")
	}
	return fmt.Sprintf("%s → %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Summarize totals expenses over the period, grouped by category path.
// Every category appears in the totals, including those with no expenses
// in the period. The result is cached per (range, category).
func (s *Store) Summarize(ctx context.Context, start, end *time.Time, categoryID *int64) (*Summary, error) {
	resolvedStart, resolvedEnd, err := s.resolveDateRange(start, end)
	if err != nil {
		return nil, err
	}

	qualifier := rangeToken(&resolvedStart, &resolvedEnd)
	if categoryID != nil {
		qualifier += ":cat=" + strconv.FormatInt(*categoryID, 10)
	}
	key := cache.Key(cache.NamespaceSummary, ownerAll, qualifier)

	summary, _, err := cache.Fetch(ctx, s.cache, key, s.ttl,
		func(ctx context.Context) (*Summary, bool, error) {
			summary, err := s.summarizeUncached(ctx, resolvedStart, resolvedEnd, categoryID)
			if err != nil {
				return nil, false, err
			}
			return summary, true, nil
		})
	return summary, err
}

func (s *Store) summarizeUncached(ctx context.Context, start, end time.Time, categoryID *int64) (*Summary, error) {
	query := `
		SELECT c.id, COALESCE(SUM(CASE
			WHEN e.created_at >= ? AND e.created_at <= ? THEN e.amount
			ELSE 0 END), 0)
		FROM categories c
		LEFT JOIN expenses e ON e.category_id = c.id`
	args := []any{start.Unix(), end.Unix()}
	if categoryID != nil {
		query += " WHERE c.id = ?"
		args = append(args, *categoryID)
	}
	query += " GROUP BY c.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "store: summarize")
	}
	defer rows.Close()

	totals := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var total float64
		if err := rows.Scan(&id, &total); err != nil {
			return nil, errors.Wrap(err, "store: scan summary row")
		}
		totals[id] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	categories, err := s.loadCategoryMap(ctx)
	if err != nil {
		return nil, err
	}

	categoryTotals := make(map[string]float64, len(totals))
	var overall float64
	for id, total := range totals {
		categoryTotals[buildCategoryPath(id, categories)] = total
		overall += total
	}

	return &Summary{
		Period:         periodLabel(start, end),
		Total:          overall,
		CategoryTotals: categoryTotals,
		StartDate:      start,
		EndDate:        end,
		CategoryID:     categoryID,
	}, nil
}
