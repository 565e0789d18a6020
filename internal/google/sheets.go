package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"gorental/internal/models"
)

// LedgerClient appends paid reservations to the back-office Google
// Sheets ledger using a service account.
type LedgerClient struct {
	service       *sheets.Service
	spreadsheetID string
	sheetRange    string
}

func NewLedgerClient(credentialsFile, spreadsheetID, sheetRange string) (*LedgerClient, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	if sheetRange == "" {
		sheetRange = "Ledger!A:A"
	}

	return &LedgerClient{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetRange:    sheetRange,
	}, nil
}

// TestConnection reads a single cell to verify access to the ledger.
func (c *LedgerClient) TestConnection(ctx context.Context) error {
	_, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, c.sheetRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// ServiceAccountEmail returns the email an operator must share the
// spreadsheet with.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// AppendReservation adds one ledger row for a reservation.
func (c *LedgerClient) AppendReservation(ctx context.Context, b *models.Booking) error {
	if b == nil {
		return fmt.Errorf("reservation is nil")
	}

	row := []interface{}{
		b.ID,
		b.CarName,
		b.Customer.Name,
		b.Customer.Email,
		b.Customer.Phone,
		b.StartDate.Format(models.DateOnly),
		b.EndDate.Format(models.DateOnly),
		b.DaysOfRent,
		b.Amount.Total,
		b.PaymentInfo.Method,
		b.PaymentInfo.Status,
		b.PaymentInfo.ID,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
	}

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{row},
	}

	_, err := c.service.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetRange, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()

	return err
}
