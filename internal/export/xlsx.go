// Package export renders bills as spreadsheets.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/mmynk/tripmate/internal/calculator"
	"github.com/mmynk/tripmate/internal/models"
)

// ContentType is the MIME type of an XLSX workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	ExpensesSheet   = "Expenses"
	SettlementSheet = "Settlement"
)

// BillReport is everything written into a bill workbook.
type BillReport struct {
	Bill       *models.Bill
	Expenses   []*models.Expense
	Settlement *calculator.Settlement
	Transfers  []calculator.Transfer
}

// WriteBillXLSX writes the report as a workbook with an Expenses sheet and
// a Settlement sheet.
func WriteBillXLSX(w io.Writer, r BillReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExpensesSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeExpenses(f, r); err != nil {
		return err
	}

	index, err := f.NewSheet(SettlementSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeSettlement(f, r); err != nil {
		return err
	}
	f.SetActiveSheet(index)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeExpenses(f *excelize.File, r BillReport) error {
	rows := [][]any{
		{"Date", "Payer", "Category", "Description", "Amount (" + r.Bill.Currency + ")"},
	}
	for _, e := range r.Expenses {
		rows = append(rows, []any{e.Date, e.PayerID, e.Category, e.Description, e.Amount})
	}
	rows = append(rows, []any{"", "", "", "Total", r.Bill.TotalAmount})

	if err := writeRows(f, ExpensesSheet, rows); err != nil {
		return err
	}
	f.SetColWidth(ExpensesSheet, "A", "A", 12)
	f.SetColWidth(ExpensesSheet, "B", "B", 38)
	f.SetColWidth(ExpensesSheet, "C", "C", 12)
	f.SetColWidth(ExpensesSheet, "D", "D", 30)
	f.SetColWidth(ExpensesSheet, "E", "E", 14)
	return nil
}

func writeSettlement(f *excelize.File, r BillReport) error {
	s := r.Settlement
	rows := [][]any{
		{"Bill", r.Bill.Title},
		{"Total", s.Total.InexactFloat64()},
		{"Per person", s.PerPerson.Round(2).InexactFloat64()},
		{},
		{"Participant", "Paid", "Should pay", "Balance"},
	}

	ids := make([]string, 0, len(s.Entries))
	for id := range s.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e := s.Entries[id]
		rows = append(rows, []any{
			id,
			e.Paid.Round(2).InexactFloat64(),
			e.ShouldPay.Round(2).InexactFloat64(),
			e.Balance.Round(2).InexactFloat64(),
		})
	}

	if len(r.Transfers) > 0 {
		rows = append(rows, []any{}, []any{"From", "To", "Amount"})
		for _, t := range r.Transfers {
			rows = append(rows, []any{t.From, t.To, t.Amount.Round(2).InexactFloat64()})
		}
	}

	if err := writeRows(f, SettlementSheet, rows); err != nil {
		return err
	}
	f.SetColWidth(SettlementSheet, "A", "B", 38)
	f.SetColWidth(SettlementSheet, "C", "D", 14)
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
