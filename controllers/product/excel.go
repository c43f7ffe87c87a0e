package productcontroller

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

var bookColumns = []string{"ID", "Title", "Author", "Description", "Price", "Stock", "Category ID", "Image URL"}

// WriteBooksExcel renders books in the same column order ImportBooks reads.
func WriteBooksExcel(w io.Writer, books []models.Book) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Books")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range bookColumns {
		header.AddCell().SetString(h)
	}

	for _, b := range books {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(b.ID))
		row.AddCell().SetString(b.Title)
		row.AddCell().SetString(b.Author)
		row.AddCell().SetString(b.Description)
		price, _ := b.Price.Float64()
		row.AddCell().SetFloat(price)
		row.AddCell().SetInt(b.Stock)
		row.AddCell().SetInt(int(b.CategoryID))
		row.AddCell().SetString(b.ImageURL)
	}
	return file.Write(w)
}

type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ImportBooks upserts rows of the first sheet. A row whose id matches an
// existing book updates it; any other row becomes a new book with a counter id.
func ImportBooks(ctx context.Context, db *gorm.DB, r io.ReaderAt, size int64) (ImportResult, error) {
	var res ImportResult

	xlFile, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return res, fmt.Errorf("parse excel: %w", err)
	}
	if len(xlFile.Sheets) == 0 || xlFile.Sheets[0].MaxRow < 2 {
		return res, fmt.Errorf("%w: excel file is empty or missing header row", ErrInvalidBook)
	}

	sheet := xlFile.Sheets[0]
	for i := 1; i < sheet.MaxRow; i++ {
		row := sheet.Rows[i]
		if row == nil || len(row.Cells) < 6 {
			res.Skipped++
			continue
		}

		get := func(index int) string {
			if index < len(row.Cells) {
				return strings.TrimSpace(row.Cells[index].String())
			}
			return ""
		}

		price, err1 := decimal.NewFromString(get(4))
		stock, err2 := strconv.Atoi(get(5))
		if get(1) == "" || err1 != nil || err2 != nil {
			res.Skipped++
			continue
		}
		categoryID, _ := strconv.Atoi(get(6))

		in := &models.Book{
			Title:       get(1),
			Author:      get(2),
			Description: get(3),
			Price:       price,
			Stock:       stock,
			CategoryID:  uint(categoryID),
			ImageURL:    get(7),
		}

		if id, err := strconv.Atoi(get(0)); err == nil && id > 0 {
			if _, err := UpdateBook(ctx, db, uint(id), in); err == nil {
				res.Updated++
				continue
			}
		}

		if err := CreateBook(ctx, db, in); err != nil {
			res.Skipped++
			continue
		}
		res.Created++
	}
	return res, nil
}
