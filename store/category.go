package store

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/Issafulldev/notbroke/cache"
)

type categoryRow struct {
	name     string
	parentID *int64
}

// loadCategoryMap fetches the whole category table in one query. Paths are
// resolved against this map instead of per-row parent lookups.
func (s *Store) loadCategoryMap(ctx context.Context) (map[int64]categoryRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, parent_id FROM categories`)
	if err != nil {
		return nil, errors.Wrap(err, "store: load categories")
	}
	defer rows.Close()

	out := make(map[int64]categoryRow)
	for rows.Next() {
		var id int64
		var name string
		var parentID sql.NullInt64
		if err := rows.Scan(&id, &name, &parentID); err != nil {
			return nil, errors.Wrap(err, "store: scan category")
		}
		row := categoryRow{name: name}
		if parentID.Valid {
			row.parentID = &parentID.Int64
		}
		out[id] = row
	}
	return out, rows.Err()
}

// buildCategoryPath returns the " / "-joined ancestor chain for a category.
// Cycles (possible after manual re-parenting) terminate at the first
// revisited node.
func buildCategoryPath(id int64, categories map[int64]categoryRow) string {
	var parts []string
	visited := make(map[int64]bool)
	current := &id
	for current != nil && !visited[*current] {
		visited[*current] = true
		row, ok := categories[*current]
		if !ok {
			break
		}
		parts = append(parts, row.name)
		current = row.parentID
	}
	if len(parts) == 0 {
		return unclassified
	}
	// parts were collected leaf-first.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " / ")
}

func categoryFromMap(id int64, categories map[int64]categoryRow) *Category {
	row, ok := categories[id]
	if !ok {
		return nil
	}
	return &Category{
		ID:       id,
		Name:     row.name,
		ParentID: row.parentID,
		FullPath: buildCategoryPath(id, categories),
	}
}

// CreateCategory inserts a category and returns it with its resolved path.
func (s *Store) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrInvalidName
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, description, parent_id) VALUES (?, ?, ?)`,
		in.Name, in.Description, in.ParentID)
	if isUniqueViolation(err) {
		return nil, ErrCategoryNameConflict
	}
	if isForeignKeyViolation(err) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: create category")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "store: create category")
	}

	s.invalidate(cache.NamespaceCategories)
	return s.getCategoryUncached(ctx, id)
}

// ListCategories returns the root categories ordered by name, with full
// paths resolved and children nested under their parents. The result is
// cached.
func (s *Store) ListCategories(ctx context.Context) ([]*Category, error) {
	key := cache.Key(cache.NamespaceCategories, ownerAll, "list")
	list, _, err := cache.Fetch(ctx, s.cache, key, s.ttl,
		func(ctx context.Context) ([]*Category, bool, error) {
			list, err := s.listCategoriesUncached(ctx)
			if err != nil {
				return nil, false, err
			}
			return list, true, nil
		})
	return list, err
}

func (s *Store) listCategoriesUncached(ctx context.Context) ([]*Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, parent_id FROM categories`)
	if err != nil {
		return nil, errors.Wrap(err, "store: list categories")
	}
	defer rows.Close()

	categories := make(map[int64]categoryRow)
	byID := make(map[int64]*Category)
	list := make([]*Category, 0)
	for rows.Next() {
		c := &Category{Children: []*Category{}}
		var parentID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &parentID); err != nil {
			return nil, errors.Wrap(err, "store: scan category")
		}
		if parentID.Valid {
			c.ParentID = &parentID.Int64
		}
		categories[c.ID] = categoryRow{name: c.Name, parentID: c.ParentID}
		byID[c.ID] = c
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range list {
		c.FullPath = buildCategoryPath(c.ID, categories)
	}
	// Attach children to their parents, then keep only the roots: a
	// category must not appear both nested and at the top level. Orphans
	// (parent row gone) surface as roots rather than vanishing.
	roots := make([]*Category, 0)
	for _, c := range list {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Children = append(parent.Children, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	for _, c := range list {
		sort.Slice(c.Children, func(i, j int) bool { return c.Children[i].Name < c.Children[j].Name })
	}
	return roots, nil
}

// GetCategory returns one category by id. The result is cached.
func (s *Store) GetCategory(ctx context.Context, id int64) (*Category, error) {
	key := cache.Key(cache.NamespaceCategories, ownerAll, "id="+strconv.FormatInt(id, 10))
	c, found, err := cache.Fetch(ctx, s.cache, key, s.ttl,
		func(ctx context.Context) (*Category, bool, error) {
			c, err := s.getCategoryUncached(ctx, id)
			if errors.Is(err, ErrNotFound) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			return c, true, nil
		})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *Store) getCategoryUncached(ctx context.Context, id int64) (*Category, error) {
	var c Category
	var parentID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, parent_id FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: get category")
	}
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}

	categories, err := s.loadCategoryMap(ctx)
	if err != nil {
		return nil, err
	}
	c.FullPath = buildCategoryPath(c.ID, categories)
	c.Children = []*Category{}
	for childID, row := range categories {
		if row.parentID != nil && *row.parentID == c.ID {
			c.Children = append(c.Children, categoryFromMap(childID, categories))
		}
	}
	sort.Slice(c.Children, func(i, j int) bool { return c.Children[i].Name < c.Children[j].Name })
	return &c, nil
}

// UpdateCategory applies a partial update. Re-parenting a category to
// itself clears the parent instead of creating a self-loop.
func (s *Store) UpdateCategory(ctx context.Context, id int64, patch CategoryPatch) (*Category, error) {
	existing, err := s.getCategoryUncached(ctx, id)
	if err != nil {
		return nil, err
	}

	name := existing.Name
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, ErrInvalidName
		}
		name = *patch.Name
	}
	description := existing.Description
	if patch.Description != nil {
		description = *patch.Description
	}
	parentID := existing.ParentID
	if patch.SetParent {
		parentID = patch.ParentID
	}
	if parentID != nil && *parentID == id {
		parentID = nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, parent_id = ? WHERE id = ?`,
		name, description, parentID, id)
	if isUniqueViolation(err) {
		return nil, ErrCategoryNameConflict
	}
	if isForeignKeyViolation(err) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "store: update category")
	}

	s.invalidate(cache.NamespaceCategories)
	return s.getCategoryUncached(ctx, id)
}

// DeleteCategory removes a category. Its expenses are deleted with it and
// its children are re-parented to the root.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "store: delete category")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "store: delete category")
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.invalidate(cache.NamespaceCategories)
	return nil
}
