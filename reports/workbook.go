// Package reports renders transaction and expense listings as XLSX
// workbooks for the office's bookkeeping.
package reports

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"idealtransport/models"
)

const (
	TransactionsSheet = "Transactions"
	ExpensesSheet     = "Daily Expenses"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var transactionHeaders = []string{
	"ID", "Date", "Work Order", "Broker", "Broker Phone", "Pickup", "Dropoff",
	"Payment Type", "Collected", "Due After Payment", "Comments",
}

var expenseHeaders = []string{
	"ID", "Date", "Diesel", "Diesel Location", "DEF", "DEF Location",
	"Other Description", "Other", "Other Location", "Total",
}

// sheet is a single-sheet workbook being filled row by row.
type sheet struct {
	f    *excelize.File
	name string
	row  int
}

func newSheet(name string, headers []string) (*sheet, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(name)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("reports: new sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("reports: drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	s := &sheet{f: f, name: name, row: 1}
	if err := s.append(toAny(headers)...); err != nil {
		_ = f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(name, "A1", last, bold)
	}
	_ = f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return s, nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func (s *sheet) append(values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	if err := s.f.SetSheetRow(s.name, cell, &values); err != nil {
		return fmt.Errorf("reports: row %d: %w", s.row, err)
	}
	s.row++
	return nil
}

func money(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

// TransactionsWorkbook lists payments with a closing total of collected
// amounts. The caller closes the returned file.
func TransactionsWorkbook(rows []*models.TransactionListItem) (*excelize.File, error) {
	s, err := newSheet(TransactionsSheet, transactionHeaders)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, t := range rows {
		total = total.Add(t.CollectedAmount)
		err := s.append(
			t.ID, t.Date.String(), t.WorkOrderNo, t.BrokerName, t.BrokerPhone,
			t.PickupLocation, t.DropoffLocation, string(t.PaymentType),
			money(t.CollectedAmount), money(t.DueAmount), t.Comments,
		)
		if err != nil {
			_ = s.f.Close()
			return nil, err
		}
	}
	if err := s.append("", "", "", "", "", "", "", "Total", money(total)); err != nil {
		_ = s.f.Close()
		return nil, err
	}
	return s.f, nil
}

// ExpensesWorkbook lists daily expenses with per-column totals.
func ExpensesWorkbook(rows []*models.DailyExpense) (*excelize.File, error) {
	s, err := newSheet(ExpensesSheet, expenseHeaders)
	if err != nil {
		return nil, err
	}
	var diesel, def, other, total decimal.Decimal
	for _, e := range rows {
		diesel = diesel.Add(e.DieselAmount)
		def = def.Add(e.DefAmount)
		total = total.Add(e.Total)

		var otherCell any = ""
		if e.OtherExpenseAmount.Valid {
			other = other.Add(e.OtherExpenseAmount.Decimal)
			otherCell = money(e.OtherExpenseAmount.Decimal)
		}
		err := s.append(
			e.ID, e.Date.String(), money(e.DieselAmount), e.DieselLocation,
			money(e.DefAmount), e.DefLocation, e.OtherExpenseDescription,
			otherCell, e.OtherExpenseLocation, money(e.Total),
		)
		if err != nil {
			_ = s.f.Close()
			return nil, err
		}
	}
	err = s.append("", "Total", money(diesel), "", money(def), "", "", money(other), "", money(total))
	if err != nil {
		_ = s.f.Close()
		return nil, err
	}
	return s.f, nil
}

// Write streams the workbook to w and closes it.
func Write(w io.Writer, f *excelize.File) error {
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("reports: write workbook: %w", err)
	}
	return nil
}
