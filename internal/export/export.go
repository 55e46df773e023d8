// Package export renders session products as CSV (the interchange contract)
// and Parquet (archival snapshots).
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"stocklens/internal/models"
)

// CSVHeader is the fixed column order of every CSV export.
var CSVHeader = []string{"product_name", "unit", "description", "category", "confidence"}

// WriteCSV streams the products to w in the fixed column order.
func WriteCSV(w io.Writer, products []models.ProductRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, product := range products {
		row := []string{
			product.ProductName,
			product.Unit,
			product.Description,
			string(product.Category),
			strconv.FormatFloat(product.Confidence, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// parquetRow is the flat schema of an archival snapshot.
type parquetRow struct {
	ID          string  `parquet:"id"`
	ProductName string  `parquet:"product_name"`
	Unit        string  `parquet:"unit"`
	Description string  `parquet:"description"`
	Category    string  `parquet:"category"`
	Confidence  float64 `parquet:"confidence"`
	SessionID   string  `parquet:"session_id"`
	CreatedAt   int64   `parquet:"created_at_unix_ms"`
}

// WriteParquet writes the products to w as a Parquet file.
func WriteParquet(w io.Writer, products []models.ProductRecord) error {
	rows := make([]parquetRow, len(products))
	for i, product := range products {
		rows[i] = parquetRow{
			ID:          product.ID,
			ProductName: product.ProductName,
			Unit:        product.Unit,
			Description: product.Description,
			Category:    string(product.Category),
			Confidence:  product.Confidence,
			SessionID:   product.SessionID,
			CreatedAt:   product.CreatedAt.UnixMilli(),
		}
	}

	writer := parquet.NewGenericWriter[parquetRow](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
