package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nemoguigrat/uralintern/internal/models"

	"gorm.io/gorm"
)

// importColumn maps a CSV header to a trainee field.
type importColumn struct {
	source string
	field  string
}

var traineeImportSchema = []importColumn{
	{"ФИО", "username"},
	{"Частный e-mail", "email"},
	{"Личная страница", "social_url"},
	{"Направление стажировки", "internship"},
	{"Курс", "course"},
	{"Учебная специальность", "speciality"},
	{"Учебное заведение", "institution"},
	{"Команда", "team"},
	{"Мероприятие", "event"},
}

type ImportSkip struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type Credential struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ImportResult struct {
	Created     int          `json:"created"`
	Skipped     []ImportSkip `json:"skipped"`
	Credentials []Credential `json:"credentials"`
}

type ImportService struct {
	db *gorm.DB
}

func NewImportService(db *gorm.DB) *ImportService {
	return &ImportService{db: db}
}

// ImportTrainees creates trainee users from a CSV export. Rows missing a name
// or email, or with an email already registered, are skipped. All rows are
// written in one transaction.
func (s *ImportService) ImportTrainees(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, err := parseTraineeCSV(r)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Skipped: []ImportSkip{}, Credentials: []Credential{}}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		teams, err := teamsByName(tx)
		if err != nil {
			return err
		}
		events, err := eventsByName(tx)
		if err != nil {
			return err
		}

		for _, row := range rows {
			if row.values["username"] == "" || row.values["email"] == "" {
				result.Skipped = append(result.Skipped, ImportSkip{Line: row.line, Reason: "name and email are required"})
				continue
			}

			user, err := newUser(UserInput{
				Username:  row.values["username"],
				Email:     row.values["email"],
				SocialURL: row.values["social_url"],
				Role:      models.RoleTrainee,
			})
			if err != nil {
				result.Skipped = append(result.Skipped, ImportSkip{Line: row.line, Reason: err.Error()})
				continue
			}

			taken, err := emailTaken(tx, user.Email)
			if err != nil {
				return err
			}
			if taken {
				result.Skipped = append(result.Skipped, ImportSkip{Line: row.line, Reason: "email already registered"})
				continue
			}

			course, err := parseCourse(row.values["course"])
			if err != nil {
				result.Skipped = append(result.Skipped, ImportSkip{Line: row.line, Reason: err.Error()})
				continue
			}

			template := &models.Trainee{
				Internship:  row.values["internship"],
				Course:      course,
				Speciality:  row.values["speciality"],
				Institution: row.values["institution"],
				TeamID:      teams[row.values["team"]],
				EventID:     events[row.values["event"]],
				DateStart:   time.Now(),
			}
			if err := createUserWithProfile(tx, user, template); err != nil {
				return fmt.Errorf("line %d: %w", row.line, err)
			}

			result.Created++
			result.Credentials = append(result.Credentials, Credential{
				Username: user.Username,
				Email:    user.Email,
				Password: user.UnhashedPassword,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("trainees imported", "created", result.Created, "skipped", len(result.Skipped))
	return result, nil
}

type csvRow struct {
	line   int
	values map[string]string
}

func parseTraineeCSV(r io.Reader) ([]csvRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, invalid("csv_file", "invalid CSV: "+err.Error())
	}
	if len(records) < 1 {
		return nil, invalid("csv_file", "CSV must have a header row")
	}

	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		index[strings.TrimSpace(h)] = i
	}

	rows := make([]csvRow, 0, len(records)-1)
	for n, rec := range records[1:] {
		values := make(map[string]string, len(traineeImportSchema))
		for _, col := range traineeImportSchema {
			if i, ok := index[col.source]; ok && i < len(rec) {
				values[col.field] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, csvRow{line: n + 2, values: values})
	}
	return rows, nil
}

// sniffDelimiter picks ';' or ',' by whichever occurs more in the header.
func sniffDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}
	return ','
}

func parseCourse(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 6 {
		return nil, fmt.Errorf("course must be a number from 1 to 6, got %q", s)
	}
	return &n, nil
}

func teamsByName(tx *gorm.DB) (map[string]*uint, error) {
	var teams []models.Team
	if err := tx.Find(&teams).Error; err != nil {
		return nil, err
	}
	byName := make(map[string]*uint, len(teams))
	for i := range teams {
		byName[teams[i].TeamName] = &teams[i].ID
	}
	return byName, nil
}

func eventsByName(tx *gorm.DB) (map[string]*uint, error) {
	var events []models.Event
	if err := tx.Find(&events).Error; err != nil {
		return nil, err
	}
	byName := make(map[string]*uint, len(events))
	for i := range events {
		byName[events[i].EventName] = &events[i].ID
	}
	return byName, nil
}
