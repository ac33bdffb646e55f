package render

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/assets"
	"github.com/studiooh/proposal-export-service/proposal"
)

const (
	SheetName = "Media"

	logoRowHeight   = 30
	headerRow       = 9
	headerRowHeight = 20
	firstDataRow    = 10
	nameColWidth    = 30
	fieldColWidth   = 15
)

type SpreadsheetRenderer struct {
	base
}

func NewSpreadsheetRenderer(loader assets.Loader, log *zap.SugaredLogger) *SpreadsheetRenderer {
	return &SpreadsheetRenderer{base: base{loader: loader, log: log}}
}

func (r *SpreadsheetRenderer) Format() string   { return FormatExcel }
func (r *SpreadsheetRenderer) Filename() string { return "Media_Export.xlsx" }
func (r *SpreadsheetRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

type sheetStyles struct {
	bold        int
	header      int
	cell        int
	attribution int
}

func newSheetStyles(f *excelize.File) (*sheetStyles, error) {
	thin := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	s := &sheetStyles{}
	var err error
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Border:    thin,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return nil, err
	}
	if s.cell, err = f.NewStyle(&excelize.Style{Border: thin}); err != nil {
		return nil, err
	}
	if s.attribution, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true, Color: "555555"}}); err != nil {
		return nil, err
	}
	return s, nil
}

// Render writes a single worksheet; progress is reported by the caller.
func (r *SpreadsheetRenderer) Render(ctx context.Context, slides []proposal.Slide, opts proposal.Options, _ ProgressFunc) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			r.log.Warnw("failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	styles, err := newSheetStyles(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create styles: %w", err)
	}

	if err := f.MergeCell(SheetName, "A1", "D4"); err != nil {
		return nil, fmt.Errorf("failed to merge logo region: %w", err)
	}
	for row := 1; row <= 4; row++ {
		if err := f.SetRowHeight(SheetName, row, logoRowHeight); err != nil {
			return nil, err
		}
	}
	r.addLogo(ctx, f, opts.LogoPath)

	title := titleOf(slides, opts)
	for i, line := range [][2]string{
		{"CLIENT", title.ClientName},
		{"CAMPAIGN", title.CampaignName},
		{"GENERATED ON", title.Date},
	} {
		row := 5 + i
		if err := r.setRow(f, row, []string{line[0], line[1]}); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(SheetName, cell(1, row), cell(1, row), styles.bold); err != nil {
			return nil, err
		}
	}

	columns := proposal.Columns(opts.HiddenFields)
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Label
		width := float64(fieldColWidth)
		if col.Key == proposal.NameField.Key {
			width = nameColWidth
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, name, name, width); err != nil {
			return nil, err
		}
	}
	if err := r.setRow(f, headerRow, header); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, cell(1, headerRow), cell(len(columns), headerRow), styles.header); err != nil {
		return nil, err
	}
	if err := f.SetRowHeight(SheetName, headerRow, headerRowHeight); err != nil {
		return nil, err
	}

	row := firstDataRow
	for _, slide := range slides {
		if slide.Kind != proposal.MediaSlide {
			continue
		}
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		if err := r.setRow(f, row, rowValues(slide.Media, columns)); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(SheetName, cell(1, row), cell(len(columns), row), styles.cell); err != nil {
			return nil, err
		}
		row++
	}

	attributionRow := row + 1
	if err := f.SetCellValue(SheetName, cell(1, attributionRow), assets.Attribution); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, cell(1, attributionRow), cell(1, attributionRow), styles.attribution); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// addLogo is best effort; any failure leaves the merged region empty.
func (r *SpreadsheetRenderer) addLogo(ctx context.Context, f *excelize.File, ref string) {
	logo := r.loadLogo(ctx, ref)
	if logo == nil {
		return
	}
	err := f.AddPictureFromBytes(SheetName, "A1", &excelize.Picture{
		Extension: "." + logo.Extension(),
		File:      logo.Data,
		Format: &excelize.GraphicOptions{
			AutoFit:         true,
			LockAspectRatio: true,
			Positioning:     "oneCell",
		},
	})
	if err != nil {
		r.log.Warnw("failed to add logo to spreadsheet", "logo", ref, "error", err)
	}
}

func (r *SpreadsheetRenderer) setRow(f *excelize.File, row int, values []string) error {
	for i, v := range values {
		if err := f.SetCellStr(SheetName, cell(i+1, row), v); err != nil {
			return err
		}
	}
	return nil
}

// rowValues pulls each column's value from the slide by label match.
func rowValues(m *proposal.MediaContent, columns []proposal.Field) []string {
	values := make([]string, len(columns))
	for i, col := range columns {
		if col.Key == proposal.NameField.Key {
			values[i] = m.Name
			continue
		}
		values[i], _ = m.Value(col.Label)
	}
	return values
}

// titleOf returns the title slide, or one derived from opts when missing.
func titleOf(slides []proposal.Slide, opts proposal.Options) proposal.TitleContent {
	for _, s := range slides {
		if s.Kind == proposal.TitleSlide && s.Title != nil {
			return *s.Title
		}
	}
	return proposal.TitleContent{ClientName: opts.ClientName, CampaignName: opts.CampaignName}
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
