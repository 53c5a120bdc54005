// Package export renders a week's invoice table to external formats: an
// Excel workbook for download and a Google Sheets tab for the bookkeeper.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"pawboard/internal/invoice"
	"pawboard/internal/models"
)

// ExcelWriter abstracts workbook assembly so tests can substitute a recorder.
type ExcelWriter interface {
	// AddSheet adds a new sheet with the given name and makes it current.
	AddSheet(name string) error

	// WriteHeader writes bold column headers to the current sheet.
	WriteHeader(columns []string) error

	// WriteRow writes a data row to the current sheet.
	WriteRow(row []interface{}) error

	// Save writes the workbook to wr.
	Save(wr io.Writer) error

	// Close releases resources.
	Close() error
}

// ExcelizeWriter implements ExcelWriter using the excelize library.
type ExcelizeWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

// NewExcelizeWriter creates a new Excel writer.
func NewExcelizeWriter() ExcelWriter {
	return &ExcelizeWriter{
		file: excelize.NewFile(),
	}
}

// AddSheet adds a new sheet with the given name.
func (w *ExcelizeWriter) AddSheet(name string) error {
	// Truncate sheet name to 31 chars (Excel limit)
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		// Rename the default sheet
		w.file.SetSheetName("Sheet1", name)
	} else {
		_, err := w.file.NewSheet(name)
		if err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes column headers to the current sheet.
func (w *ExcelizeWriter) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow writes a data row to the current sheet.
func (w *ExcelizeWriter) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// Save writes the Excel file to the writer.
func (w *ExcelizeWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases resources.
func (w *ExcelizeWriter) Close() error {
	return w.file.Close()
}

var invoiceColumns = []string{"Customer", "Email", "Dog", "Amount", "Status"}

// WriteInvoiceWorkbook fills w with one sheet holding the week's invoice
// rows followed by a summary footer. Rows are written in the order given;
// callers sort beforehand.
func WriteInvoiceWorkbook(w ExcelWriter, weekStart time.Time, rows []models.InvoiceRow, sum invoice.Summary) error {
	sheet := fmt.Sprintf("Week of %s", weekStart.Format("2006-01-02"))
	if err := w.AddSheet(sheet); err != nil {
		return err
	}
	if err := w.WriteHeader(invoiceColumns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.WriteRow(invoiceRowValues(r)); err != nil {
			return err
		}
	}

	if err := w.WriteRow([]interface{}{}); err != nil {
		return err
	}
	footer := [][]interface{}{
		{"Grand total", "", "", sum.GrandTotal.String(), fmt.Sprintf("%d customers", sum.CustomerCount)},
		{"Paid", "", "", sum.PaidTotal.String(), fmt.Sprintf("%d customers", sum.PaidCount)},
		{"Unpaid", "", "", sum.UnpaidTotal.String(), fmt.Sprintf("%d customers", sum.UnpaidCount)},
	}
	for _, row := range footer {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func invoiceRowValues(r models.InvoiceRow) []interface{} {
	status := "UNPAID"
	if r.Paid {
		status = "PAID"
	}
	return []interface{}{
		r.CustomerName,
		r.CustomerEmail,
		r.DogName,
		r.Amount.String(),
		status,
	}
}
