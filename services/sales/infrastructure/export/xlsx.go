// Package export renders sales as spreadsheet workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ghuser/branchpos/services/sales/domain/models"
)

const (
	SalesSheet   = "Sales"
	SummarySheet = "Summary"

	// ContentType is the media type of the workbook written by WriteSales.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var salesHeader = []any{
	"Invoice", "Date", "Items", "Subtotal", "Tax", "Discount", "Total", "Profit",
	"Payment", "Amount Paid", "Change", "Customer", "Status",
}

// WriteSales writes an xlsx workbook with one row per sale on the Sales
// sheet and the totals of completed sales on the Summary sheet. Dates are
// shown in loc.
func WriteSales(w io.Writer, sales []*models.Sale, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", SalesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SalesSheet, "A1", &salesHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	var (
		total, profit decimal.Decimal
		completed     int
	)
	for i, s := range sales {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		customer := ""
		if s.Customer != nil {
			customer = s.Customer.Name
		}
		row := []any{
			s.InvoiceNumber,
			s.CreatedAt.In(loc).Format(time.DateTime),
			s.ItemCount(),
			s.Totals.Subtotal.InexactFloat64(),
			s.Totals.Tax.InexactFloat64(),
			s.Totals.Discount.InexactFloat64(),
			s.Totals.Total.InexactFloat64(),
			s.Totals.Profit.InexactFloat64(),
			string(s.Payment.Method),
			s.Payment.AmountPaid.InexactFloat64(),
			s.Payment.Change.InexactFloat64(),
			customer,
			string(s.Status),
		}
		if err := f.SetSheetRow(SalesSheet, cell, &row); err != nil {
			return fmt.Errorf("write sale %s: %w", s.InvoiceNumber, err)
		}
		if s.Status == models.StatusCompleted {
			total = total.Add(s.Totals.Total)
			profit = profit.Add(s.Totals.Profit)
			completed++
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	summary := [][]any{
		{"Completed sales", completed},
		{"Total sales", total.InexactFloat64()},
		{"Total profit", profit.InexactFloat64()},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
