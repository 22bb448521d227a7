package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Issafulldev/notbroke/store"
)

// renderStoreError maps store sentinels onto HTTP statuses: missing
// entities are 404, name conflicts 409, bad input 400, everything else a
// logged 500.
func (s *Server) renderStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrCategoryNameConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrCategoryNotFound),
		errors.Is(err, store.ErrInvalidAmount),
		errors.Is(err, store.ErrInvalidDateRange),
		errors.Is(err, store.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// parseDate accepts RFC 3339 timestamps and bare dates.
func parseDate(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, val); err == nil {
			return &t, nil
		}
	}
	return nil, errors.Newf("invalid date %q, expected ISO 8601", val)
}

func dateRangeQuery(c *gin.Context) (start, end *time.Time, ok bool) {
	var err error
	if start, err = parseDate(c.Query("start_date")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	if end, err = parseDate(c.Query("end_date")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	return start, end, true
}

func categoryIDQuery(c *gin.Context) (*int64, bool) {
	val := c.Query("category_id")
	if val == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
		return nil, false
	}
	return &id, true
}

func (s *Server) createCategory(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		ParentID    *int64 `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category, err := s.store.CreateCategory(c.Request.Context(), store.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (s *Server) listCategories(c *gin.Context) {
	list, err := s.store.ListCategories(c.Request.Context())
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getCategory(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	category, err := s.store.GetCategory(c.Request.Context(), id)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (s *Server) updateCategory(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	// parent_id needs null/absent distinction: "parent_id": null means
	// "move to root", an absent key means "leave it alone".
	var req struct {
		Name        *string         `json:"name"`
		Description *string         `json:"description"`
		ParentID    json.RawMessage `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := store.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
	}
	if len(req.ParentID) > 0 {
		patch.SetParent = true
		if string(req.ParentID) != "null" {
			var parentID int64
			if err := json.Unmarshal(req.ParentID, &parentID); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parent_id"})
				return
			}
			patch.ParentID = &parentID
		}
	}

	category, err := s.store.UpdateCategory(c.Request.Context(), id, patch)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (s *Server) deleteCategory(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.store.DeleteCategory(c.Request.Context(), id); err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createExpense(c *gin.Context) {
	var req struct {
		CategoryID int64      `json:"category_id" binding:"required"`
		Amount     float64    `json:"amount" binding:"required"`
		Currency   string     `json:"currency"`
		Note       string     `json:"note"`
		CreatedAt  *time.Time `json:"created_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	expense, err := s.store.CreateExpense(c.Request.Context(), store.ExpenseInput{
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Note:       req.Note,
		CreatedAt:  req.CreatedAt,
	})
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

func (s *Server) listCategoryExpenses(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	start, end, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	list, err := s.store.ListExpensesByCategory(c.Request.Context(), id, start, end)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) searchExpenses(c *gin.Context) {
	categoryID, ok := categoryIDQuery(c)
	if !ok {
		return
	}
	start, end, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	list, err := s.store.SearchExpenses(c.Request.Context(), store.ExpenseFilter{
		CategoryID: categoryID,
		Start:      start,
		End:        end,
	})
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) updateExpense(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Amount     *float64   `json:"amount"`
		Note       *string    `json:"note"`
		CreatedAt  *time.Time `json:"created_at"`
		CategoryID *int64     `json:"category_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	expense, err := s.store.UpdateExpense(c.Request.Context(), id, store.ExpensePatch{
		Amount:     req.Amount,
		Note:       req.Note,
		CreatedAt:  req.CreatedAt,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (s *Server) deleteExpense(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.store.DeleteExpense(c.Request.Context(), id); err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getSummary(c *gin.Context) {
	categoryID, ok := categoryIDQuery(c)
	if !ok {
		return
	}
	start, end, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	summary, err := s.store.Summarize(c.Request.Context(), start, end, categoryID)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) exportExpenses(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported export format, only csv is available"})
		return
	}
	categoryID, ok := categoryIDQuery(c)
	if !ok {
		return
	}
	start, end, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	data, err := s.store.ExportCSV(c.Request.Context(), store.ExpenseFilter{
		CategoryID: categoryID,
		Start:      start,
		End:        end,
	})
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+store.ExportFilename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
