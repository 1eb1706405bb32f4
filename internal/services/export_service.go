package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmkdev/account-factory/internal/models"
	"github.com/mmkdev/account-factory/internal/store"
	"github.com/xuri/excelize/v2"
)

var ErrNoAccounts = errors.New("no accounts to export")

// ExportService renders the account list as TXT, CSV or XLSX downloads.
type ExportService struct {
	store store.Store
}

func NewExportService(st store.Store) *ExportService {
	return &ExportService{store: st}
}

func (s *ExportService) accounts(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.store.ListAccounts(ctx, 1000)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	return accounts, nil
}

// TXT renders one pipe-separated line per account.
func (s *ExportService) TXT(ctx context.Context) ([]byte, string, error) {
	accounts, err := s.accounts(ctx)
	if err != nil {
		return nil, "", err
	}

	var b strings.Builder
	for i, acc := range accounts {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s|%s|%s|Tạo lúc: %s",
			acc.Username, acc.Password, acc.Email,
			acc.CreatedAt.Format("02-01-06 15:04"))
	}
	return []byte(b.String()), fmt.Sprintf("ACCOUNTS_%d.txt", len(accounts)), nil
}

func (s *ExportService) CSV(ctx context.Context) ([]byte, string, error) {
	accounts, err := s.accounts(ctx)
	if err != nil {
		return nil, "", err
	}

	var b strings.Builder
	b.WriteString("Username,Email,Password,Phone,Status,Provider,Created At")
	for _, acc := range accounts {
		fmt.Fprintf(&b, "\n%s,%s,%s,%s,%s,%s,%s",
			acc.Username, acc.Email, acc.Password, acc.Phone,
			acc.Status, acc.EmailProvider,
			acc.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return []byte(b.String()), fmt.Sprintf("ACCOUNTS_%d.csv", len(accounts)), nil
}

func (s *ExportService) XLSX(ctx context.Context) ([]byte, string, error) {
	accounts, err := s.accounts(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Accounts"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("failed to build workbook: %w", err)
	}

	headers := []string{"ID", "Username", "Password", "Email", "Phone", "Status", "Created At"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, "", fmt.Errorf("failed to build workbook: %w", err)
		}
	}

	for row, acc := range accounts {
		values := []any{
			acc.ID.String(), acc.Username, acc.Password, acc.Email,
			acc.Phone, acc.Status, acc.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, "", fmt.Errorf("failed to build workbook: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("ACCOUNTS_%d.xlsx", len(accounts)), nil
}
