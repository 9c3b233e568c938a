// Package importer parses price-import workbooks into product records and
// holds the option-merge rules the import pipeline applies.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"
)

// SheetName is the sheet the pipeline looks for first; when absent the first
// sheet in the workbook is used.
const SheetName = "Products"

// Option is a name/price pair from the sheet.
type Option struct {
	Name  string
	Price float64
}

// Record is one product row from the sheet.
// Column layout: Name | Category | Price | Description | [Option name, Option price]...
type Record struct {
	Name        string
	Category    string
	Description string
	Price       float64
	Options     []Option
}

// ParseWorkbook reads an .xlsx workbook and returns the product records plus
// the number of rows skipped for per-row validation failures. The first row
// is treated as a header.
func ParseWorkbook(r io.ReaderAt, size int64) ([]Record, int, error) {
	xlFile, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse workbook: %w", err)
	}

	if len(xlFile.Sheets) == 0 {
		return nil, 0, fmt.Errorf("workbook has no sheets")
	}

	sheet, ok := xlFile.Sheet[SheetName]
	if !ok {
		sheet = xlFile.Sheets[0]
	}
	if sheet.MaxRow < 2 {
		return nil, 0, fmt.Errorf("sheet is empty or missing header row")
	}

	var records []Record
	skipped := 0

	for i := 1; i < sheet.MaxRow; i++ {
		row := sheet.Rows[i]

		get := func(index int) string {
			if index < len(row.Cells) {
				return strings.TrimSpace(row.Cells[index].String())
			}
			return ""
		}

		name := get(0)
		category := get(1)
		price, priceErr := strconv.ParseFloat(get(2), 64)
		description := get(3)

		if name == "" || priceErr != nil || price < 0 {
			skipped++
			continue
		}

		record := Record{
			Name:        name,
			Category:    category,
			Description: description,
			Price:       price,
		}

		// Option name/price pairs start at column 4.
		for col := 4; col < len(row.Cells); col += 2 {
			optName := get(col)
			if optName == "" {
				continue
			}
			optPrice, err := strconv.ParseFloat(get(col+1), 64)
			if err != nil || optPrice < 0 {
				continue
			}
			record.Options = append(record.Options, Option{Name: optName, Price: optPrice})
		}

		records = append(records, record)
	}

	return records, skipped, nil
}

// MergeOptions folds the options from the latest sheet into the existing
// option list: matching names take the new price, options missing from the
// sheet are preserved as-is, and new names are appended.
func MergeOptions(existing, incoming []Option) []Option {
	merged := make([]Option, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, opt := range merged {
		index[opt.Name] = i
	}

	for _, opt := range incoming {
		if i, ok := index[opt.Name]; ok {
			merged[i].Price = opt.Price
			continue
		}
		index[opt.Name] = len(merged)
		merged = append(merged, opt)
	}

	return merged
}
