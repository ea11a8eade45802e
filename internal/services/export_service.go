package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/quizforge/quiz-engine/internal/models"
	"github.com/quizforge/quiz-engine/internal/repositories"
	"github.com/quizforge/quiz-engine/internal/utils"
)

// ExportService produces downloadable views of a test: its submission
// results for graders and its question list for authors.
type ExportService interface {
	ExportResults(ctx context.Context, testID uint) ([]byte, error)
	ExportQuestionsToCSV(ctx context.Context, testID uint) ([]byte, error)
	ExportQuestionsToExcel(ctx context.Context, testID uint) ([]byte, error)
}

type exportService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewExportService(repo repositories.Repository, logger utils.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

// ===== RESULTS EXPORT =====

func (s *exportService) ExportResults(ctx context.Context, testID uint) ([]byte, error) {
	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	submissions, _, err := s.repo.Submission().List(ctx, repositories.SubmissionFilters{TestID: &testID})
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Student ID", "Score", "Max Score", "Percentage", "Ungraded", "Submitted At",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, sub := range submissions {
		row := []interface{}{
			sub.StudentID,
			sub.Score,
			sub.MaxScore,
			sub.Percentage,
			sub.Ungraded,
			sub.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Results exported", "test_id", testID, "title", test.Title, "rows", len(submissions))
	return buf.Bytes(), nil
}

// ===== QUESTION EXPORT =====

var questionExportHeaders = []string{
	"Type", "Text", "Options", "Correct Answer", "Points",
}

func (s *exportService) ExportQuestionsToCSV(ctx context.Context, testID uint) ([]byte, error) {
	test, err := s.loadTestWithQuestions(ctx, testID)
	if err != nil {
		return nil, err
	}

	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	if err := writer.Write(questionExportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range test.Questions {
		row, err := questionToExportRow(&test.Questions[i])
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return []byte(buf.String()), nil
}

func (s *exportService) ExportQuestionsToExcel(ctx context.Context, testID uint) ([]byte, error) {
	test, err := s.loadTestWithQuestions(ctx, testID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Questions"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, header := range questionExportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex := range test.Questions {
		row, err := questionToExportRow(&test.Questions[rowIndex])
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", rowIndex+1, err)
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// ===== HELPERS =====

func (s *exportService) loadTestWithQuestions(ctx context.Context, testID uint) (*models.Test, error) {
	test, err := s.repo.Test().GetByIDWithDetails(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func questionToExportRow(q *models.Question) ([]string, error) {
	row := make([]string, len(questionExportHeaders))
	row[0] = string(q.Type)
	row[1] = q.Text
	row[4] = strconv.Itoa(q.Points)

	decoded, err := q.DecodeContent()
	if err != nil {
		return nil, err
	}

	switch content := decoded.(type) {
	case *models.MultipleContent:
		row[2] = strings.Join(content.Options, "|")
		if content.CorrectAnswer >= 0 && content.CorrectAnswer < len(content.Options) {
			row[3] = content.Options[content.CorrectAnswer]
		}

	case *models.TextContent:
		row[3] = content.CorrectAnswer

	case *models.TrueFalseContent:
		row[3] = strconv.FormatBool(content.CorrectAnswer)

	case *models.WordBankContent:
		row[2] = strings.Join(content.Bank, "|")
		assignments := make([]string, 0, len(content.CorrectAnswers))
		for _, id := range sortedBlankIDs(content.CorrectAnswers) {
			assignments = append(assignments, id+"="+content.CorrectAnswers[id])
		}
		row[3] = strings.Join(assignments, "|")

	case *models.MatchingContent:
		pairs := make([]string, 0, len(content.Pairs))
		for _, p := range content.Pairs {
			pairs = append(pairs, p.Left+"="+p.Right)
		}
		row[3] = strings.Join(pairs, "|")

	case *models.AudioContent:
		row[2] = content.AudioURL
		row[3] = fmt.Sprintf("%d sub-questions", len(content.SubQuestions))
	}

	return row, nil
}

// sortedBlankIDs orders blank ids numerically so b2 sorts before b10.
func sortedBlankIDs(answers map[string]string) []string {
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aerr := strconv.Atoi(strings.TrimPrefix(ids[i], "b"))
		b, berr := strconv.Atoi(strings.TrimPrefix(ids[j], "b"))
		if aerr == nil && berr == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}
