package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nemoguigrat/uralintern/internal/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const exportSheet = "Оценки"

var gradeExportHeaders = []string{
	"Имя оценщика",
	"Имя оцениваемого",
	"Команда",
	"Этап",
	"Вовлеченность",
	"Организованность",
	"Обучаемость",
	"Командность",
	"Дата",
}

type ExportService struct {
	db *gorm.DB
}

func NewExportService(db *gorm.DB) *ExportService {
	return &ExportService{db: db}
}

// Rows returns the whole ledger as text rows, header first.
func (s *ExportService) Rows(ctx context.Context) ([][]string, error) {
	var grades []models.Grade
	err := s.db.WithContext(ctx).
		Preload("User").Preload("Trainee.User").Preload("Team").Preload("Stage").
		Order("id ASC").
		Find(&grades).Error
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(grades)+1)
	rows = append(rows, gradeExportHeaders)
	for i := range grades {
		g := &grades[i]
		row := make([]string, 0, len(gradeExportHeaders))
		row = append(row, userName(g.User))
		if g.Trainee != nil {
			row = append(row, userName(g.Trainee.User))
		} else {
			row = append(row, "")
		}
		if g.Team != nil {
			row = append(row, g.Team.TeamName)
		} else {
			row = append(row, "")
		}
		if g.Stage != nil {
			row = append(row, g.Stage.StageName)
		} else {
			row = append(row, "")
		}
		for k := 1; k <= models.CompetenceCount; k++ {
			row = append(row, scoreText(g.Competence(k)))
		}
		row = append(row, g.Date.Format("02.01.2006 15:04"))
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.Rows(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func (s *ExportService) WriteXLSX(ctx context.Context, w io.Writer) error {
	rows, err := s.Rows(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func userName(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}

func scoreText(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
