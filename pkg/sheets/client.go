// Package sheets wraps the Google Sheets API behind the narrow contract the
// pipeline needs: read a range, write one cell, append rows. Nothing outside
// this package sees the SDK types, which keeps the reconciliation engine
// testable against an in-memory fake.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// Client is the spreadsheet service contract. FetchRange returns rows of
// cell strings in sheet order; rows can be shorter than the schema when
// trailing cells are empty. UpdateCell and Append are the only mutations the
// pipeline performs against the sheet.
type Client interface {
	FetchRange(ctx context.Context, readRange string) ([][]string, error)
	UpdateCell(ctx context.Context, cellRef, value string) error
	Append(ctx context.Context, appendRange string, rows [][]string) error
}

type googleClient struct {
	svc           *sheetsv4.Service
	spreadsheetID string
}

var _ Client = (*googleClient)(nil)

// NewClient builds a Sheets API client from a service-account credentials
// file with read/write spreadsheet scope.
func NewClient(ctx context.Context, spreadsheetID, credentialsFile string) (Client, error) {
	svc, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &googleClient{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (c *googleClient) FetchRange(ctx context.Context, readRange string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch range %s: %w", readRange, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		rows[i] = cellStrings(raw)
	}
	return rows, nil
}

func (c *googleClient) UpdateCell(ctx context.Context, cellRef, value string) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{{value}}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, cellRef, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update cell %s: %w", cellRef, err)
	}
	return nil
}

func (c *googleClient) Append(ctx context.Context, appendRange string, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}

	vr := &sheetsv4.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, appendRange, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", appendRange, err)
	}
	return nil
}

// cellStrings converts one API row to plain strings. The API reports typed
// cells as interface values; everything downstream works on strings, the
// same way the sheet presents them to humans.
func cellStrings(raw []interface{}) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = cellString(v)
	}
	return out
}

func cellString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}
