package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"time"

	apperrors "github.com/NomadCrew/formflow-backend/errors"
	"github.com/NomadCrew/formflow-backend/internal/storage"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/models/form"
	"github.com/NomadCrew/formflow-backend/types"
)

// ExportLinkTTL is how long a presigned export link stays valid.
const ExportLinkTTL = 15 * time.Minute

var ErrExportDisabled = errors.New("export storage is not configured")

// ExportResult describes an uploaded submissions export.
type ExportResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExportService writes a form's submissions as CSV to object storage.
type ExportService struct {
	storage storage.FileStorage
	now     func() time.Time
}

// NewExportService accepts a nil storage; exports then fail with
// ErrExportDisabled.
func NewExportService(fs storage.FileStorage) *ExportService {
	return &ExportService{storage: fs, now: time.Now}
}

func (s *ExportService) Enabled() bool {
	return s != nil && s.storage != nil
}

// ExportSubmissions uploads subs as CSV and returns a presigned link.
func (s *ExportService) ExportSubmissions(ctx context.Context, f *types.Form, subs []*types.Submission) (*ExportResult, error) {
	if !s.Enabled() {
		return nil, apperrors.ExternalService("storage", ErrExportDisabled)
	}

	data, err := RenderSubmissionsCSV(f, subs)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ServerError, "failed to render export")
	}

	now := s.now().UTC()
	key := fmt.Sprintf("exports/%s/%s-%s.csv", f.ID, f.Slug, now.Format("20060102T150405Z"))
	if err := s.storage.Save(ctx, key, "text/csv", bytes.NewReader(data)); err != nil {
		return nil, apperrors.ExternalService("storage", err)
	}
	url, err := s.storage.PresignURL(ctx, key, ExportLinkTTL)
	if err != nil {
		return nil, apperrors.ExternalService("storage", err)
	}

	logger.GetLogger().Infow("Exported submissions", "formID", f.ID, "rows", len(subs), "key", key)
	return &ExportResult{Key: key, URL: url, Rows: len(subs), ExpiresAt: now.Add(ExportLinkTTL)}, nil
}

// RenderSubmissionsCSV writes one row per submission, oldest first, with a
// column per form field in field order.
func RenderSubmissionsCSV(f *types.Form, subs []*types.Submission) ([]byte, error) {
	ordered := append([]*types.Submission(nil), subs...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].CreatedAt.Before(ordered[j].CreatedAt) })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"submission_id", "status", "user_id", "created_at"}
	for _, field := range f.Fields {
		header = append(header, field.Label)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, sub := range ordered {
		row := []string{sub.ID, string(sub.Status), sub.UserID, sub.CreatedAt.UTC().Format(time.RFC3339)}
		for _, field := range f.Fields {
			row = append(row, form.FormatValue(sub.Values[field.ID]))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
