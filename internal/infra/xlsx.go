package infra

import (
	"io"

	"officine/internal/model"

	"github.com/google/uuid"
	"github.com/tealeg/xlsx"
)

var productExportHeaders = []string{
	"ID", "SKU", "Name", "PriceHT", "PriceTTC", "Stock",
	"LowStockThreshold", "RequiresPrescription", "CategoryID", "SupplierID",
	"Active", "CreatedAt", "UpdatedAt",
}

// WriteProductsXLSX writes the catalog as a single "Products" sheet.
func WriteProductsXLSX(w io.Writer, products []model.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return err
	}

	header := sheet.AddRow()
	for _, h := range productExportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID.String())
		row.AddCell().SetValue(p.SKU)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.PriceHT.StringFixed(2))
		row.AddCell().SetValue(p.PriceTTC.StringFixed(2))
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetInt(p.LowStockThreshold)
		row.AddCell().SetBool(p.RequiresPrescription)
		row.AddCell().SetValue(optionalID(p.CategoryID))
		row.AddCell().SetValue(optionalID(p.SupplierID))
		row.AddCell().SetBool(p.Active)
		row.AddCell().SetValue(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	return file.Write(w)
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
