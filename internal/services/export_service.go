package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/linguaprep/exam-service/internal/repositories"
	"github.com/linguaprep/exam-service/internal/token"
)

// ExportService renders answer keys to spreadsheets for examiners.
type ExportService interface {
	ExportAnswerKey(ctx context.Context, sectionID uint) ([]byte, error)
}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

const answerKeySheet = "Answer Key"

// ExportAnswerKey writes one row per token of every question in the section,
// ordered by displayed number. Accepted variants are joined with " / ".
func (s *exportService) ExportAnswerKey(ctx context.Context, sectionID uint) ([]byte, error) {
	groups, err := s.repo.Group().ListBySection(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list question groups: %w", err)
	}

	file := excelize.NewFile()
	defer file.Close()

	sheet, err := file.NewSheet(answerKeySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	file.SetActiveSheet(sheet)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headers := []string{"No.", "Question ID", "Type", "Token", "Accepted Answers", "Input"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(answerKeySheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	row := 2
	for _, group := range groups {
		questions, err := s.repo.Question().GetByGroup(ctx, group.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list questions for group %d: %w", group.ID, err)
		}

		for _, q := range questions {
			key, meta, err := decodeAnswerKey(q)
			if err != nil {
				return nil, err
			}

			// Tokens come out in prompt order; anything in the key but not
			// in the text (should not happen post-compile) is appended so
			// no answer silently drops from the export.
			tokenIDs := token.ExtractIDs(q.Text, token.FamilyFor(q.Type))
			seen := make(map[string]bool, len(tokenIDs))
			for _, id := range tokenIDs {
				seen[id] = true
			}
			extras := make([]string, 0)
			for id := range key {
				if !seen[id] {
					extras = append(extras, id)
				}
			}
			sort.Strings(extras)
			tokenIDs = append(tokenIDs, extras...)

			for i, tokenID := range tokenIDs {
				inputKind := ""
				if m, ok := meta[tokenID]; ok {
					inputKind = string(m.InputKind)
				}
				values := []interface{}{
					q.DisplayNumber(i),
					q.ID,
					string(q.Type),
					tokenID,
					strings.Join(key[tokenID], " / "),
					inputKind,
				}
				for col, v := range values {
					cell, _ := excelize.CoordinatesToCellName(col+1, row)
					if err := file.SetCellValue(answerKeySheet, cell, v); err != nil {
						return nil, fmt.Errorf("failed to write answer row: %w", err)
					}
				}
				row++
			}
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	s.logger.Info("Exported answer key",
		"section_id", sectionID,
		"rows", row-2)

	return buf.Bytes(), nil
}
