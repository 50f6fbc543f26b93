package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/jamesmoraless/stockr/internal/model"
	"github.com/jamesmoraless/stockr/utils"
)

const sheetName = "Portfolio"

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders the valued portfolio and the transaction log into a
// single-sheet xlsx workbook.
func (g *XLSXGenerator) Generate(ctx context.Context, snapshot model.PortfolioSnapshot, transactions []model.Transaction) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(transactions) == 0 {
		return nil, "", errors.New("empty transactions")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if _, err := f.NewSheet(sheetName); err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	rowNum, err := g.fillHoldings(f, snapshot)
	if err != nil {
		return nil, "", err
	}

	if err := g.fillTransactions(f, transactions, rowNum+2); err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func sectionHeader(f *excelize.File, cell, title, color string) error {
	f.SetCellValue(sheetName, cell, title)

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, cell, cell, styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	return nil
}

func (g *XLSXGenerator) fillHoldings(f *excelize.File, snapshot model.PortfolioSnapshot) (lastRow int, err error) {
	if err := f.MergeCell(sheetName, "A1", "F1"); err != nil {
		return 0, err
	}
	if err := sectionHeader(f, "A1", "Holdings", "#cfe2f3"); err != nil {
		return 0, err
	}

	_ = f.SetCellStr(sheetName, "A2", "ticker")
	_ = f.SetCellStr(sheetName, "B2", "shares")
	_ = f.SetCellStr(sheetName, "C2", "average cost")
	_ = f.SetCellStr(sheetName, "D2", "book value")
	_ = f.SetCellStr(sheetName, "E2", "market value")
	_ = f.SetCellStr(sheetName, "F2", "allocation %")

	rowNum := 2
	for _, h := range snapshot.Holdings {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), h.Ticker)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), h.Shares.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), h.AverageCost.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), h.BookValue.InexactFloat64())
		if h.MarketValue != nil {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), h.MarketValue.InexactFloat64())
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), h.AllocationPct.Round(2).InexactFloat64())
	}

	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "total")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), snapshot.TotalValue.InexactFloat64())

	return rowNum, nil
}

func (g *XLSXGenerator) fillTransactions(f *excelize.File, transactions []model.Transaction, startRow int) error {
	if err := f.MergeCell(sheetName, fmt.Sprintf("A%d", startRow), fmt.Sprintf("F%d", startRow)); err != nil {
		return err
	}
	if err := sectionHeader(f, fmt.Sprintf("A%d", startRow), "Transaction History", "#d9ead3"); err != nil {
		return err
	}

	rowNum := startRow + 1
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "ticker")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), "type")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), "shares")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", rowNum), "price")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", rowNum), "total")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("F%d", rowNum), "date")

	for _, txn := range transactions {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), txn.Ticker)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), txn.Type)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), txn.Shares.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), txn.Price.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), txn.Shares.Mul(txn.Price).InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), txn.CreatedAt.Format("2006-01-02 15:04"))
	}

	return nil
}
