// Package history filters and pages the invoice list client-side. The system
// of record returns the full list; predicates compose with AND over it.
package history

import (
	"strings"

	"dukaanbill/backend/internal/domain"
)

// Filter applies the history filter to a normalized invoice list. The query
// matches case-insensitively against invoice number, customer name and phone.
func Filter(records []domain.InvoiceRecord, filter domain.InvoiceFilter) []domain.InvoiceRecord {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	status := strings.ToLower(strings.TrimSpace(filter.PaymentStatus))

	out := make([]domain.InvoiceRecord, 0, len(records))
	for _, rec := range records {
		if query != "" && !matchesQuery(rec, query) {
			continue
		}
		if status != "" && strings.ToLower(rec.PaymentStatus) != status {
			continue
		}
		if filter.From != nil && rec.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.Date.After(*filter.To) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matchesQuery(rec domain.InvoiceRecord, query string) bool {
	return strings.Contains(strings.ToLower(rec.InvoiceNo), query) ||
		strings.Contains(strings.ToLower(rec.CustomerName), query) ||
		strings.Contains(strings.ToLower(rec.CustomerPhone), query)
}

// Paginate slices one page out of the filtered list. Pages are 1-based; a
// page past the end returns an empty slice, never an error.
func Paginate(records []domain.InvoiceRecord, page int, perPage int) ([]domain.InvoiceRecord, int) {
	if perPage < 1 {
		perPage = 20
	}
	if page < 1 {
		page = 1
	}
	total := len(records)
	start := (page - 1) * perPage
	if start >= total {
		return []domain.InvoiceRecord{}, total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return records[start:end], total
}
