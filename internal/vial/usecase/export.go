package usecase

import (
	"context"
	"io"
	"time"

	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/vial/dto"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Inventory"

var exportHeaders = []string{
	"Vial ID", "Product", "Brand", "Lot Number", "Expiration", "Status",
	"Remaining", "Initial", "Unit", "Location", "Opened", "Beyond-Use Expiry", "Received",
}

// Export writes every vial matching filters as an XLSX workbook.
func (uc *vialUseCase) Export(ctx context.Context, filters *dto.VialFilters, w io.Writer) error {
	if err := uc.prepareFilters(filters); err != nil {
		return err
	}
	filters.Page = 1
	filters.PageSize = 0

	vials, _, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return uc.fail("failed to export vials", filters.AccountID, "", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeInventorySheet(f, vials); err != nil {
		return uc.fail("failed to build export workbook", filters.AccountID, "", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return uc.fail("failed to write export workbook", filters.AccountID, "", err)
	}
	return nil
}

func writeInventorySheet(f *excelize.File, vials []model.Vial) error {
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0EBF5"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i := range vials {
		v := &vials[i]
		row := []interface{}{
			v.ID,
			productName(v),
			"",
			v.LotNumber,
			v.ExpirationDate.Format("2006-01-02"),
			string(v.Status),
			v.RemainingQuantity.InexactFloat64(),
			v.InitialQuantity.InexactFloat64(),
			"",
			"",
			formatTime(v.OpenedAt),
			formatTime(v.BeyondUseExpiry()),
			v.CreatedAt.Format("2006-01-02 15:04"),
		}
		if v.Product != nil {
			row[2] = v.Product.Brand
			row[8] = v.Product.UnitType.Label()
		}
		if v.Location != nil {
			row[9] = v.Location.Name
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(exportSheet, "A", lastCol, 16); err != nil {
		return err
	}
	return f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
