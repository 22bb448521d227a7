package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
)

// ExportFilename is the attachment name for CSV exports.
const ExportFilename = "expenses.csv"

// ExportCSV renders the expenses matching the filter as a CSV document:
// a per-category summary block followed by the detail rows, grouped by
// category path. Headers are French; existing spreadsheets import them
// as-is.
func (s *Store) ExportCSV(ctx context.Context, filter ExpenseFilter) ([]byte, error) {
	resolvedStart, resolvedEnd, err := s.resolveDateRange(filter.Start, filter.End)
	if err != nil {
		return nil, err
	}
	filter.Start, filter.End = &resolvedStart, &resolvedEnd

	expenses, err := s.SearchExpenses(ctx, filter)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*Expense)
	var paths []string
	for _, e := range expenses {
		if _, seen := grouped[e.CategoryPath]; !seen {
			paths = append(paths, e.CategoryPath)
		}
		grouped[e.CategoryPath] = append(grouped[e.CategoryPath], e)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	write := func(record ...string) {
		// csv.Writer defers errors to Flush; collected below.
		_ = w.Write(record)
	}

	write("Résumé")
	var overall float64
	for _, path := range paths {
		var total float64
		for _, e := range grouped[path] {
			total += e.Amount
		}
		overall += total
		write(path, fmt.Sprintf("%.2f €", total))
	}
	write("Total", fmt.Sprintf("%.2f €", overall))
	write()
	write("Catégorie", "ID", "Montant", "Note", "Date")
	for _, path := range paths {
		for _, e := range grouped[path] {
			write(
				path,
				fmt.Sprintf("%d", e.ID),
				fmt.Sprintf("%.2f", e.Amount),
				e.Note,
				e.CreatedAt.Format(time.RFC3339),
			)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "store: write csv")
	}
	return buf.Bytes(), nil
}
