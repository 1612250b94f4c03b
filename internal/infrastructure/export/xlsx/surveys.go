// Package xlsx renders survey responses as an Excel workbook for staff.
package xlsx

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/movement-studio/internal/core/domain"
)

const SheetName = "Surveys"

var fixedColumns = []string{"id", "created_at", "site", "session_id", "rating", "comment"}

type SurveyExporter struct {
	location *time.Location
}

// NewSurveyExporter renders timestamps in loc, UTC when nil.
func NewSurveyExporter(loc *time.Location) *SurveyExporter {
	if loc == nil {
		loc = time.UTC
	}
	return &SurveyExporter{location: loc}
}

// WriteSurveys writes one row per response. Every answer key seen in any
// response becomes its own column after the fixed ones.
func (e *SurveyExporter) WriteSurveys(w io.Writer, responses []domain.SurveyResponse) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	answerKeys := collectAnswerKeys(responses)
	header := make([]any, 0, len(fixedColumns)+len(answerKeys))
	for _, col := range fixedColumns {
		header = append(header, col)
	}
	for _, key := range answerKeys {
		header = append(header, key)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := e.styleHeader(f, len(header)); err != nil {
		return err
	}

	for i, resp := range responses {
		row := []any{
			resp.ID,
			resp.CreatedAt.In(e.location).Format("2006-01-02 15:04:05"),
			string(resp.Site),
			resp.SessionID,
			resp.Rating,
			resp.Comment,
		}
		for _, key := range answerKeys {
			row = append(row, resp.Answers[key])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d cell name: %w", i+2, err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (e *SurveyExporter) styleHeader(f *excelize.File, columns int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return fmt.Errorf("header cell name: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	return nil
}

func collectAnswerKeys(responses []domain.SurveyResponse) []string {
	seen := make(map[string]struct{})
	for _, resp := range responses {
		for key := range resp.Answers {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
