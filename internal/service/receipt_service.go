package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pantrypal/api/internal/client"
	"github.com/pantrypal/api/internal/config"
	"github.com/pantrypal/api/internal/model"
	"github.com/pantrypal/api/internal/transform"
)

const receiptInput = "file_name"

// ReceiptService extracts grocery items from receipt images
type ReceiptService struct {
	runner   client.PipelineRunner
	archive  client.ReceiptArchive
	pipeline *config.PipelineConfig
	tempDir  string
	logger   *slog.Logger
}

// NewReceiptService creates a receipt service. archive may be nil.
func NewReceiptService(runner client.PipelineRunner, archive client.ReceiptArchive, pipeline *config.PipelineConfig, upload *config.UploadConfig) *ReceiptService {
	return &ReceiptService{
		runner:   runner,
		archive:  archive,
		pipeline: pipeline,
		tempDir:  upload.TempDir,
		logger:   slog.Default().With("component", "receipt_service"),
	}
}

// Scan spools the image to a temp file, runs the receipt pipeline on it and
// parses the resulting CSV. Items are returned unsaved. The temp file is
// removed on every return path.
func (s *ReceiptService) Scan(ctx context.Context, userID, fileName, contentType string, file io.Reader, opts ...client.RunOption) (*model.ReceiptUploadResponse, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	tmp, err := os.CreateTemp(s.tempDir, "receipt-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove temp receipt", "path", tmp.Name(), "error", err)
		}
	}()

	if _, err := io.Copy(tmp, file); err != nil {
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}
	payload, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}

	resp := &model.ReceiptUploadResponse{}
	if s.archive != nil {
		url, err := s.archive.Archive(ctx, userID, fileName, bytes.NewReader(payload), contentType)
		if err != nil {
			// archiving is best effort
			s.logger.Warn("receipt archive failed", "user_id", userID, "error", err)
		} else {
			resp.ArchiveURL = url
		}
	}

	// Use mock response if client is not configured
	if s.runner == nil || !s.runner.IsConfigured() {
		resp.Items = s.scanMock()
		return resp, nil
	}

	req := &model.JobRequest{
		Payload:    payload,
		Kind:       model.InputKindFile,
		FileName:   uuid.New().String() + ext,
		PipelineID: s.pipeline.ReceiptPipelineID,
		InputName:  receiptInput,
	}
	text, err := s.runner.Run(ctx, req, s.pipeline.ReceiptOutput, opts...)
	if err != nil {
		return nil, err
	}

	items, err := transform.ParseGroceryCSV(text)
	if err != nil {
		return nil, err
	}
	s.logger.Info("receipt scanned", "user_id", userID, "items", len(items))
	resp.Items = items
	return resp, nil
}

// Mock implementation for development/testing
func (s *ReceiptService) scanMock() []model.GroceryItem {
	return []model.GroceryItem{
		{ID: 1, Name: "Sample Item 1", Quantity: 1, Unit: model.DefaultUnit, Category: model.CategoryOther},
		{ID: 2, Name: "Sample Item 2", Quantity: 2, Unit: "lbs", Category: model.CategoryProtein},
	}
}
