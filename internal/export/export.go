// Package export writes invoices out as xlsx workbooks for back-office use.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"dukaanbill/backend/internal/domain"
)

const (
	itemsSheet   = "Invoice"
	summarySheet = "Summary"
)

// Invoice renders a single invoice as a workbook: an item sheet plus a
// one-row summary sheet.
func Invoice(rec domain.InvoiceRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", itemsSheet)

	header := []any{"#", "Item", "HSN", "Qty", "Rate", "Discount", "Amount"}
	if err := f.SetSheetRow(itemsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, item := range rec.Items {
		amount := item.Price*float64(item.Qty) - item.Discount
		if amount < 0 {
			amount = 0
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		row := []any{i + 1, item.Name, item.HSN, item.Qty, item.Price, item.Discount, amount}
		if err := f.SetSheetRow(itemsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	summaryHeader := []any{
		"Invoice No", "Date", "Billing Mode", "Customer", "Phone",
		"Items", "Subtotal", "CGST", "SGST", "IGST", "Total",
		"Paid", "Balance", "Payment Mode", "Payment Status",
	}
	if err := f.SetSheetRow(summarySheet, "A1", &summaryHeader); err != nil {
		return nil, fmt.Errorf("write summary header: %w", err)
	}
	summary := []any{
		rec.InvoiceNo,
		rec.Date.Format("2006-01-02 15:04"),
		string(rec.BillingMode),
		rec.CustomerName,
		rec.CustomerPhone,
		len(rec.Items),
		rec.Subtotal,
		rec.CGST,
		rec.SGST,
		rec.IGST,
		rec.Total,
		rec.PaidAmount,
		rec.PendingBalance(),
		string(rec.PaymentMode),
		rec.PaymentStatus,
	}
	if err := f.SetSheetRow(summarySheet, "A2", &summary); err != nil {
		return nil, fmt.Errorf("write summary row: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename derives the download name for an exported invoice.
func Filename(rec domain.InvoiceRecord) string {
	if rec.InvoiceNo == "" {
		return "invoice.xlsx"
	}
	return rec.InvoiceNo + ".xlsx"
}
