package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/mmynk/tripmate/internal/calculator"
	"github.com/mmynk/tripmate/internal/models"
)

func TestWriteBillXLSX(t *testing.T) {
	bill := &models.Bill{
		ID:           "b1",
		Title:        "Okinawa",
		Currency:     "TWD",
		TotalAmount:  300,
		Participants: []string{"A", "B", "C"},
	}
	expenses := []*models.Expense{
		{PayerID: "A", Amount: 200, Category: "food", Description: "dinner", Date: "2026-10-01"},
		{PayerID: "B", Amount: 100, Category: "transport", Description: "taxi", Date: "2026-10-02"},
	}
	settlement, err := calculator.ComputeSettlement(
		calculator.BillForSettlement{Total: 300, Participants: bill.Participants},
		[]calculator.Payment{{PayerID: "A", Amount: 200}, {PayerID: "B", Amount: 100}},
	)
	if err != nil {
		t.Fatalf("ComputeSettlement failed: %v", err)
	}

	var buf bytes.Buffer
	err = WriteBillXLSX(&buf, BillReport{
		Bill:       bill,
		Expenses:   expenses,
		Settlement: settlement,
		Transfers:  calculator.SuggestTransfers(settlement),
	})
	if err != nil {
		t.Fatalf("WriteBillXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != ExpensesSheet || sheets[1] != SettlementSheet {
		t.Fatalf("sheets = %v", sheets)
	}

	rows, err := f.GetRows(ExpensesSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	// header + 2 expenses + total
	if len(rows) != 4 {
		t.Fatalf("expected 4 expense rows, got %d", len(rows))
	}
	if rows[0][4] != "Amount (TWD)" {
		t.Errorf("amount header = %q", rows[0][4])
	}
	if rows[1][1] != "A" || rows[1][4] != "200" {
		t.Errorf("first expense row = %v", rows[1])
	}
	if rows[3][3] != "Total" || rows[3][4] != "300" {
		t.Errorf("total row = %v", rows[3])
	}

	rows, err = f.GetRows(SettlementSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if rows[2][1] != "100" {
		t.Errorf("per person = %q, want 100", rows[2][1])
	}
	// Participants are written in ID order after the header at row 5.
	want := [][]string{
		{"A", "200", "100", "100"},
		{"B", "100", "100", "0"},
		{"C", "0", "100", "-100"},
	}
	for i, w := range want {
		got := rows[5+i]
		for j := range w {
			if got[j] != w[j] {
				t.Errorf("settlement row %d = %v, want %v", i, got, w)
				break
			}
		}
	}

	// C pays A 100.
	last := rows[len(rows)-1]
	if len(last) < 3 || last[0] != "C" || last[1] != "A" || last[2] != "100" {
		t.Errorf("transfer row = %v", last)
	}
}
