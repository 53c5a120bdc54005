package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pawboard/internal/invoice"
	"pawboard/internal/models"
)

// SheetsPublisher mirrors the weekly invoice table into a Google Sheets tab
// so the bookkeeper works from a live copy instead of emailed files.
type SheetsPublisher struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsPublisher creates a publisher authenticated with the service
// account credentials at credentialsFile.
func NewSheetsPublisher(ctx context.Context, spreadsheetID, credentialsFile, sheetName string) (*SheetsPublisher, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	if sheetName == "" {
		sheetName = "Invoices"
	}
	return &SheetsPublisher{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// PublishWeek replaces the sheet's contents with the given week's rows and
// summary footer.
func (p *SheetsPublisher) PublishWeek(ctx context.Context, weekStart time.Time, rows []models.InvoiceRow, sum invoice.Summary) error {
	if p.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:E", p.sheetName)
	if _, err := p.svc.Spreadsheets.Values.Clear(p.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := sheetValues(weekStart, rows, sum)
	writeRange := fmt.Sprintf("%s!A1", p.sheetName)
	vr := &gsheet.ValueRange{Values: values}
	_, err := p.svc.Spreadsheets.Values.Update(p.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}
	return nil
}

// sheetValues builds the full cell grid for one week: a title line, the
// column headers, one row per invoice, a spacer, and the summary footer.
func sheetValues(weekStart time.Time, rows []models.InvoiceRow, sum invoice.Summary) [][]interface{} {
	values := [][]interface{}{
		{fmt.Sprintf("Week of %s", weekStart.Format("2006-01-02"))},
	}

	header := make([]interface{}, len(invoiceColumns))
	for i, col := range invoiceColumns {
		header[i] = col
	}
	values = append(values, header)

	for _, r := range rows {
		values = append(values, invoiceRowValues(r))
	}

	values = append(values,
		[]interface{}{},
		[]interface{}{"Grand total", "", "", sum.GrandTotal.String(), fmt.Sprintf("%d customers", sum.CustomerCount)},
		[]interface{}{"Paid", "", "", sum.PaidTotal.String(), fmt.Sprintf("%d customers", sum.PaidCount)},
		[]interface{}{"Unpaid", "", "", sum.UnpaidTotal.String(), fmt.Sprintf("%d customers", sum.UnpaidCount)},
	)
	return values
}
