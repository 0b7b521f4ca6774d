package history

import (
	"testing"
	"time"

	"dukaanbill/backend/internal/domain"
)

func fixtures() []domain.InvoiceRecord {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 10, 0, 0, 0, time.UTC) }
	return []domain.InvoiceRecord{
		{InvoiceNo: "INV-0001", CustomerName: "Asha Traders", CustomerPhone: "9876500001", PaymentStatus: domain.PaymentStatusCompleted, Date: day(1)},
		{InvoiceNo: "INV-0002", CustomerName: "Ravi Kumar", CustomerPhone: "9876500002", PaymentStatus: domain.PaymentStatusPending, Date: day(5)},
		{InvoiceNo: "INV-0003", CustomerName: "Sharma Stores", CustomerPhone: "9876500003", PaymentStatus: domain.PaymentStatusCompleted, Date: day(10)},
		{InvoiceNo: "INV-0004", CustomerName: "", CustomerPhone: "", PaymentStatus: domain.PaymentStatusPending, Date: day(15)},
	}
}

func invoiceNos(records []domain.InvoiceRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.InvoiceNo)
	}
	return out
}

func TestFilterQueryMatchesNumberNameAndPhone(t *testing.T) {
	cases := []struct {
		query string
		want  []string
	}{
		{"inv-0002", []string{"INV-0002"}},
		{"ravi", []string{"INV-0002"}},
		{"SHARMA", []string{"INV-0003"}},
		{"9876500001", []string{"INV-0001"}},
		{"nomatch", nil},
		{"", []string{"INV-0001", "INV-0002", "INV-0003", "INV-0004"}},
	}
	for _, tc := range cases {
		got := invoiceNos(Filter(fixtures(), domain.InvoiceFilter{Query: tc.query}))
		if len(got) != len(tc.want) {
			t.Fatalf("query %q: got %v, want %v", tc.query, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("query %q: got %v, want %v", tc.query, got, tc.want)
			}
		}
	}
}

func TestFilterPredicatesCompose(t *testing.T) {
	from := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	got := Filter(fixtures(), domain.InvoiceFilter{
		PaymentStatus: domain.PaymentStatusPending,
		From:          &from,
		To:            &to,
	})
	if len(got) != 1 || got[0].InvoiceNo != "INV-0002" {
		t.Fatalf("expected only INV-0002, got %v", invoiceNos(got))
	}
}

func TestPaginate(t *testing.T) {
	records := fixtures()

	page, total := Paginate(records, 1, 3)
	if total != 4 || len(page) != 3 {
		t.Fatalf("page 1: len=%d total=%d", len(page), total)
	}
	page, _ = Paginate(records, 2, 3)
	if len(page) != 1 || page[0].InvoiceNo != "INV-0004" {
		t.Fatalf("page 2: got %v", invoiceNos(page))
	}
	page, _ = Paginate(records, 9, 3)
	if len(page) != 0 {
		t.Fatalf("page past end must be empty, got %v", invoiceNos(page))
	}
	page, _ = Paginate(records, 0, 0)
	if len(page) != 4 {
		t.Fatalf("defaults must clamp, got %d records", len(page))
	}
}
