package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/Issafulldev/notbroke/cache"
)

const defaultCurrency = "EUR"

// rangeToken encodes an optional date range into a cache key qualifier.
func rangeToken(start, end *time.Time) string {
	token := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return strconv.FormatInt(t.Unix(), 10)
	}
	return token(start) + ".." + token(end)
}

func filterToken(f ExpenseFilter) string {
	cat := "-"
	if f.CategoryID != nil {
		cat = strconv.FormatInt(*f.CategoryID, 10)
	}
	return fmt.Sprintf("cat=%s:%s", cat, rangeToken(f.Start, f.End))
}

// CreateExpense inserts an expense. The amount must be strictly positive,
// the category must exist, the currency defaults to EUR, and the date
// defaults to now.
func (s *Store) CreateExpense(ctx context.Context, in ExpenseInput) (*Expense, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	currency := in.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	createdAt := s.now().UTC()
	if in.CreatedAt != nil {
		createdAt = in.CreatedAt.UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (category_id, amount, currency, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		in.CategoryID, in.Amount, currency, in.Note, createdAt.Unix())
	if isForeignKeyViolation(err) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: create expense")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "store: create expense")
	}

	s.invalidate(cache.NamespaceExpenses)
	return s.getExpenseUncached(ctx, id)
}

// GetExpense returns one expense by id, uncached: single-row reads are
// cheap and caching them would only widen the staleness surface.
func (s *Store) GetExpense(ctx context.Context, id int64) (*Expense, error) {
	return s.getExpenseUncached(ctx, id)
}

func (s *Store) getExpenseUncached(ctx context.Context, id int64) (*Expense, error) {
	var e Expense
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, category_id, amount, currency, note, created_at FROM expenses WHERE id = ?`, id,
	).Scan(&e.ID, &e.CategoryID, &e.Amount, &e.Currency, &e.Note, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: get expense")
	}
	e.CreatedAt = time.Unix(createdAt, 0).UTC()

	categories, err := s.loadCategoryMap(ctx)
	if err != nil {
		return nil, err
	}
	e.CategoryPath = buildCategoryPath(e.CategoryID, categories)
	return &e, nil
}

// ListExpensesByCategory returns a category's expenses, newest first,
// optionally bounded by an inclusive date range. The result is cached
// per (category, range).
func (s *Store) ListExpensesByCategory(ctx context.Context, categoryID int64, start, end *time.Time) ([]*Expense, error) {
	key := cache.Key(cache.NamespaceExpenses,
		"cat"+strconv.FormatInt(categoryID, 10), rangeToken(start, end))
	list, _, err := cache.Fetch(ctx, s.cache, key, s.ttl,
		func(ctx context.Context) ([]*Expense, bool, error) {
			list, err := s.searchExpensesUncached(ctx, ExpenseFilter{
				CategoryID: &categoryID,
				Start:      start,
				End:        end,
			})
			if err != nil {
				return nil, false, err
			}
			return list, true, nil
		})
	return list, err
}

// SearchExpenses returns expenses across categories matching the filter,
// newest first. The result is cached per filter.
func (s *Store) SearchExpenses(ctx context.Context, filter ExpenseFilter) ([]*Expense, error) {
	key := cache.Key(cache.NamespaceExpenses, ownerAll, filterToken(filter))
	list, _, err := cache.Fetch(ctx, s.cache, key, s.ttl,
		func(ctx context.Context) ([]*Expense, bool, error) {
			list, err := s.searchExpensesUncached(ctx, filter)
			if err != nil {
				return nil, false, err
			}
			return list, true, nil
		})
	return list, err
}

func (s *Store) searchExpensesUncached(ctx context.Context, filter ExpenseFilter) ([]*Expense, error) {
	query := `SELECT id, category_id, amount, currency, note, created_at FROM expenses`
	var conds []string
	var args []any
	if filter.CategoryID != nil {
		conds = append(conds, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Start != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.Start.Unix())
	}
	if filter.End != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, filter.End.Unix())
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "store: search expenses")
	}
	defer rows.Close()

	list := make([]*Expense, 0)
	for rows.Next() {
		var e Expense
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.Amount, &e.Currency, &e.Note, &createdAt); err != nil {
			return nil, errors.Wrap(err, "store: scan expense")
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	categories, err := s.loadCategoryMap(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range list {
		e.CategoryPath = buildCategoryPath(e.CategoryID, categories)
	}
	return list, nil
}

// UpdateExpense applies a partial update. Moving an expense to a category
// that does not exist returns ErrCategoryNotFound.
func (s *Store) UpdateExpense(ctx context.Context, id int64, patch ExpensePatch) (*Expense, error) {
	existing, err := s.getExpenseUncached(ctx, id)
	if err != nil {
		return nil, err
	}

	amount := existing.Amount
	if patch.Amount != nil {
		if *patch.Amount <= 0 {
			return nil, ErrInvalidAmount
		}
		amount = *patch.Amount
	}
	note := existing.Note
	if patch.Note != nil {
		note = *patch.Note
	}
	createdAt := existing.CreatedAt
	if patch.CreatedAt != nil {
		createdAt = patch.CreatedAt.UTC()
	}
	categoryID := existing.CategoryID
	if patch.CategoryID != nil {
		categoryID = *patch.CategoryID
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE expenses SET category_id = ?, amount = ?, note = ?, created_at = ? WHERE id = ?`,
		categoryID, amount, note, createdAt.Unix(), id)
	if isForeignKeyViolation(err) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: update expense")
	}

	s.invalidate(cache.NamespaceExpenses)
	return s.getExpenseUncached(ctx, id)
}

// DeleteExpense removes an expense.
func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "store: delete expense")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "store: delete expense")
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.invalidate(cache.NamespaceExpenses)
	return nil
}
