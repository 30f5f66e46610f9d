// Package excel loads the course catalog from spreadsheets and renders
// payment reports for admins.
package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/resource"
	"github.com/example/coursebot/pkg/models"
)

// Sheet names of a catalog workbook. A CSV file is read as the sheet
// matching its base name, e.g. lessons.csv.
const (
	SheetMentors  = "Mentors"
	SheetCourses  = "Courses"
	SheetLessons  = "Lessons"
	SheetQuizzes  = "Quizzes"
	SheetWebinars = "Webinars"
)

// sheets in dependency order
var sheetOrder = []string{SheetMentors, SheetCourses, SheetLessons, SheetQuizzes, SheetWebinars}

// Catalog is the write side of the course catalog
type Catalog interface {
	ListMentors(ctx context.Context) ([]models.Mentor, error)
	SaveMentor(ctx context.Context, m *models.Mentor) error
	SaveCourse(ctx context.Context, c *models.Course) error
	FindCourse(ctx context.Context, mentorID int64, title string) (models.Course, error)
	SaveLesson(ctx context.Context, l *models.Lesson) error
	FindLesson(ctx context.Context, courseID int64, title string) (models.Lesson, error)
	SaveQuiz(ctx context.Context, q *models.Quiz) error
	ListWebinars(ctx context.Context, mentorID int64) ([]models.Webinar, error)
	SaveWebinar(ctx context.Context, w *models.Webinar) error
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	StartRow int // first data row (1-based), rows above are headers
}

// DefaultImportConfig skips a single header row
func DefaultImportConfig() ImportConfig {
	return ImportConfig{StartRow: 2}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Mentors        int
	Courses        int
	Lessons        int
	Quizzes        int
	Webinars       int
	Skipped        int
	Errors         []string
}

// Imported is the number of rows written
func (r *ImportResult) Imported() int {
	return r.Mentors + r.Courses + r.Lessons + r.Quizzes + r.Webinars
}

func (r *ImportResult) fail(sheet string, row int, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s row %d: %v", sheet, row, err))
}

// Importer writes spreadsheet rows into the catalog. Rows are upserted by
// their natural keys, so importing the same workbook twice is harmless.
type Importer struct {
	catalog  Catalog
	config   ImportConfig
	validate *validator.Validate
	log      *logger.Logger
}

func NewImporter(catalog Catalog, config ImportConfig, log *logger.Logger) *Importer {
	if config.StartRow < 1 {
		config.StartRow = 1
	}
	return &Importer{
		catalog:  catalog,
		config:   config,
		validate: validator.New(),
		log:      log.With("component", "Importer"),
	}
}

type mentorRow struct {
	Name     string `validate:"required,max=128"`
	Bio      string `validate:"max=4000"`
	PhotoRef string
}

type courseRow struct {
	Mentor      string `validate:"required"`
	Title       string `validate:"required,max=255"`
	Description string
	Price       string `validate:"required"`
}

type lessonRow struct {
	Mentor   string `validate:"required"`
	Course   string `validate:"required"`
	Title    string `validate:"required,max=255"`
	Content  string
	VideoRef string
	Free     string `validate:"omitempty,oneof=0 1 yes no true false"`
}

type quizRow struct {
	Mentor   string   `validate:"required"`
	Course   string   `validate:"required"`
	Lesson   string   `validate:"required"`
	Question string   `validate:"required"`
	Options  []string `validate:"min=2,dive,required"`
	Correct  int      `validate:"gte=1"`
}

type webinarRow struct {
	Mentor      string `validate:"required"`
	Title       string `validate:"required,max=255"`
	Description string
	VideoRef    string
	Duration    int    `validate:"gte=0"`
	Status      string `validate:"omitempty,oneof=scheduled live completed cancelled"`
}

// ImportFile imports a workbook, or a single sheet from a CSV file
func (im *Importer) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".csv" {
		return im.importCSV(ctx, path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	return im.importWorkbook(ctx, f)
}

// ImportReader imports a workbook streamed from r
func (im *Importer) ImportReader(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	return im.importWorkbook(ctx, f)
}

func (im *Importer) importWorkbook(ctx context.Context, f *excelize.File) (*ImportResult, error) {
	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}

	tables := make(map[string][][]string)
	for _, name := range sheetOrder {
		if !present[name] {
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get rows of %s: %w", name, err)
		}
		tables[name] = rows
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("workbook has none of the sheets %s", strings.Join(sheetOrder, ", "))
	}
	return im.importTables(ctx, tables)
}

func (im *Importer) importCSV(ctx context.Context, path string) (*ImportResult, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sheet := ""
	for _, name := range sheetOrder {
		if strings.EqualFold(name, base) {
			sheet = name
		}
	}
	if sheet == "" {
		return nil, fmt.Errorf("cannot tell which sheet %s holds", filepath.Base(path))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return im.importTables(ctx, map[string][][]string{sheet: rows})
}

// importTables walks the sheets in dependency order. Row errors are
// collected; only catalog failures that affect every row abort the import.
func (im *Importer) importTables(ctx context.Context, tables map[string][][]string) (*ImportResult, error) {
	result := &ImportResult{Errors: make([]string, 0)}

	mentors, err := im.mentorIndex(ctx)
	if err != nil {
		return nil, err
	}

	for _, sheet := range sheetOrder {
		rows, ok := tables[sheet]
		if !ok {
			continue
		}
		for i, row := range rows {
			if i < im.config.StartRow-1 || blank(row) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return result, err
			}
			result.TotalProcessed++

			var rowErr error
			switch sheet {
			case SheetMentors:
				rowErr = im.importMentor(ctx, row, mentors, result)
			case SheetCourses:
				rowErr = im.importCourse(ctx, row, mentors, result)
			case SheetLessons:
				rowErr = im.importLesson(ctx, row, mentors, result)
			case SheetQuizzes:
				// quizzes span several rows, handled below
			case SheetWebinars:
				rowErr = im.importWebinar(ctx, row, mentors, result)
			}
			if rowErr != nil {
				result.Skipped++
				result.fail(sheet, i+1, rowErr)
			}
		}
		if sheet == SheetQuizzes {
			im.importQuizzes(ctx, rows, mentors, result)
		}
	}

	im.log.Info("catalog import finished",
		"processed", result.TotalProcessed,
		"imported", result.Imported(),
		"skipped", result.Skipped,
		"errors", len(result.Errors))
	return result, nil
}

func (im *Importer) mentorIndex(ctx context.Context) (map[string]int64, error) {
	existing, err := im.catalog.ListMentors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing mentors: %w", err)
	}
	index := make(map[string]int64, len(existing))
	for _, m := range existing {
		index[key(m.Name)] = m.ID
	}
	return index, nil
}

func (im *Importer) importMentor(ctx context.Context, row []string, mentors map[string]int64, result *ImportResult) error {
	r := mentorRow{Name: cell(row, 0), Bio: cell(row, 1), PhotoRef: cell(row, 2)}
	if err := im.validate.Struct(r); err != nil {
		return err
	}
	m := &models.Mentor{Name: r.Name, Bio: r.Bio, PhotoRef: r.PhotoRef}
	if err := im.catalog.SaveMentor(ctx, m); err != nil {
		return fmt.Errorf("failed to save mentor: %w", err)
	}
	mentors[key(m.Name)] = m.ID
	result.Mentors++
	return nil
}

func (im *Importer) importCourse(ctx context.Context, row []string, mentors map[string]int64, result *ImportResult) error {
	r := courseRow{Mentor: cell(row, 0), Title: cell(row, 1), Description: cell(row, 2), Price: cell(row, 3)}
	if err := im.validate.Struct(r); err != nil {
		return err
	}
	mentorID, ok := mentors[key(r.Mentor)]
	if !ok {
		return fmt.Errorf("unknown mentor %q", r.Mentor)
	}
	price, err := models.ParseAmount(strings.ReplaceAll(r.Price, " ", ""))
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", r.Price, err)
	}
	c := &models.Course{MentorID: mentorID, Title: r.Title, Description: r.Description, Price: price}
	if err := im.catalog.SaveCourse(ctx, c); err != nil {
		return fmt.Errorf("failed to save course: %w", err)
	}
	result.Courses++
	return nil
}

func (im *Importer) importLesson(ctx context.Context, row []string, mentors map[string]int64, result *ImportResult) error {
	r := lessonRow{
		Mentor:   cell(row, 0),
		Course:   cell(row, 1),
		Title:    cell(row, 2),
		Content:  cell(row, 3),
		VideoRef: cell(row, 4),
		Free:     strings.ToLower(cell(row, 5)),
	}
	if err := im.validate.Struct(r); err != nil {
		return err
	}
	course, err := im.course(ctx, mentors, r.Mentor, r.Course)
	if err != nil {
		return err
	}
	l := &models.Lesson{
		CourseID: course.ID,
		Title:    r.Title,
		Content:  r.Content,
		VideoRef: r.VideoRef,
		IsFree:   truthy(r.Free),
	}
	if err := im.catalog.SaveLesson(ctx, l); err != nil {
		return fmt.Errorf("failed to save lesson: %w", err)
	}
	result.Lessons++
	return nil
}

// importQuizzes groups consecutive question rows by lesson into one quiz
func (im *Importer) importQuizzes(ctx context.Context, rows [][]string, mentors map[string]int64, result *ImportResult) {
	type pending struct {
		lesson models.Lesson
		quiz   models.Quiz
		rows   []int
	}
	var (
		order   []int64
		quizzes = make(map[int64]*pending)
	)

	for i, row := range rows {
		if i < im.config.StartRow-1 || blank(row) {
			continue
		}
		r, err := im.parseQuizRow(row)
		if err == nil {
			err = im.validate.Struct(r)
		}
		if err == nil && r.Correct > len(r.Options) {
			err = fmt.Errorf("correct answer %d out of %d options", r.Correct, len(r.Options))
		}
		var lesson models.Lesson
		if err == nil {
			lesson, err = im.lesson(ctx, mentors, r)
		}
		if err != nil {
			result.Skipped++
			result.fail(SheetQuizzes, i+1, err)
			continue
		}

		p, ok := quizzes[lesson.ID]
		if !ok {
			p = &pending{lesson: lesson, quiz: models.Quiz{LessonID: lesson.ID}}
			quizzes[lesson.ID] = p
			order = append(order, lesson.ID)
		}
		p.quiz.Questions = append(p.quiz.Questions, r.Question)
		p.quiz.Answers = append(p.quiz.Answers, r.Options)
		p.quiz.CorrectAnswers = append(p.quiz.CorrectAnswers, r.Correct-1)
		p.rows = append(p.rows, i+1)
	}

	for _, id := range order {
		p := quizzes[id]
		if err := im.catalog.SaveQuiz(ctx, &p.quiz); err != nil {
			result.Skipped += len(p.rows)
			result.fail(SheetQuizzes, p.rows[0], fmt.Errorf("failed to save quiz for %q: %w", p.lesson.Title, err))
			continue
		}
		result.Quizzes++
	}
}

func (im *Importer) parseQuizRow(row []string) (quizRow, error) {
	r := quizRow{
		Mentor:   cell(row, 0),
		Course:   cell(row, 1),
		Lesson:   cell(row, 2),
		Question: cell(row, 3),
	}
	for _, o := range strings.Split(cell(row, 4), "|") {
		if o = strings.TrimSpace(o); o != "" {
			r.Options = append(r.Options, o)
		}
	}
	if raw := cell(row, 5); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return r, fmt.Errorf("invalid correct answer %q", raw)
		}
		r.Correct = n
	}
	return r, nil
}

func (im *Importer) importWebinar(ctx context.Context, row []string, mentors map[string]int64, result *ImportResult) error {
	r := webinarRow{
		Mentor:      cell(row, 0),
		Title:       cell(row, 1),
		Description: cell(row, 2),
		VideoRef:    cell(row, 3),
		Status:      strings.ToLower(cell(row, 5)),
	}
	if raw := cell(row, 4); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q", raw)
		}
		r.Duration = n
	}
	if err := im.validate.Struct(r); err != nil {
		return err
	}
	mentorID, ok := mentors[key(r.Mentor)]
	if !ok {
		return fmt.Errorf("unknown mentor %q", r.Mentor)
	}

	existing, err := im.catalog.ListWebinars(ctx, mentorID)
	if err != nil {
		return fmt.Errorf("failed to get webinars: %w", err)
	}
	for _, w := range existing {
		if key(w.Title) == key(r.Title) {
			return errors.New("webinar already exists")
		}
	}

	w := &models.Webinar{
		MentorID:        mentorID,
		Title:           r.Title,
		Description:     r.Description,
		VideoRef:        r.VideoRef,
		DurationMinutes: r.Duration,
		Status:          models.WebinarStatus(r.Status),
	}
	if err := im.catalog.SaveWebinar(ctx, w); err != nil {
		return fmt.Errorf("failed to save webinar: %w", err)
	}
	result.Webinars++
	return nil
}

func (im *Importer) course(ctx context.Context, mentors map[string]int64, mentor, title string) (models.Course, error) {
	mentorID, ok := mentors[key(mentor)]
	if !ok {
		return models.Course{}, fmt.Errorf("unknown mentor %q", mentor)
	}
	c, err := im.catalog.FindCourse(ctx, mentorID, title)
	if errors.Is(err, resource.ErrNotFound) {
		return models.Course{}, fmt.Errorf("unknown course %q", title)
	}
	if err != nil {
		return models.Course{}, fmt.Errorf("failed to find course: %w", err)
	}
	return c, nil
}

func (im *Importer) lesson(ctx context.Context, mentors map[string]int64, r quizRow) (models.Lesson, error) {
	c, err := im.course(ctx, mentors, r.Mentor, r.Course)
	if err != nil {
		return models.Lesson{}, err
	}
	l, err := im.catalog.FindLesson(ctx, c.ID, r.Lesson)
	if errors.Is(err, resource.ErrNotFound) {
		return models.Lesson{}, fmt.Errorf("unknown lesson %q", r.Lesson)
	}
	if err != nil {
		return models.Lesson{}, fmt.Errorf("failed to find lesson: %w", err)
	}
	return l, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "yes", "true":
		return true
	}
	return false
}
