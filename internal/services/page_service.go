package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/content"
	"github.com/canopyhq/canopy/internal/models"
	apperrors "github.com/canopyhq/canopy/pkg/errors"
	"github.com/canopyhq/canopy/pkg/logger"
	"go.uber.org/zap"
)

// PageInput carries admin-supplied page fields.
type PageInput struct {
	PageID      string         `json:"page_id" validate:"required"`
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description"`
	Content     map[string]any `json:"content"`
	IsPublished *bool          `json:"is_published"`
}

// PageService manages back-office page CRUD, keeping the JSON mirror and the
// in-memory page cache in step with every write.
type PageService struct {
	db     *gorm.DB
	sync   *content.SyncService
	hybrid *content.HybridService
	log    *zap.Logger
}

// NewPageService wires page management over the shared database handle.
func NewPageService(db *gorm.DB, syncService *content.SyncService, hybrid *content.HybridService) (*PageService, error) {
	if db == nil {
		return nil, errors.New("page service: db is required")
	}
	if syncService == nil {
		return nil, errors.New("page service: sync service is required")
	}
	if hybrid == nil {
		return nil, errors.New("page service: hybrid service is required")
	}
	return &PageService{
		db:     db,
		sync:   syncService,
		hybrid: hybrid,
		log:    logger.WithModule("services.pages"),
	}, nil
}

// ListPages returns every stored page except the shared content sentinel.
func (s *PageService) ListPages(ctx context.Context) ([]models.Page, error) {
	var pages []models.Page
	err := s.db.WithContext(ctx).
		Where("page_id <> ?", models.ContentDataPageID).
		Order("page_id asc").
		Find(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("page service: list pages: %w", err)
	}
	return pages, nil
}

// GetPage fetches one page by its stable identifier.
func (s *PageService) GetPage(ctx context.Context, pageID string) (*models.Page, error) {
	pageID = strings.TrimSpace(pageID)
	if !content.ValidPageID(pageID) || pageID == models.ContentDataPageID {
		return nil, apperrors.NewNotFound("page not found")
	}

	var page models.Page
	err := s.db.WithContext(ctx).Where("page_id = ?", pageID).Take(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("page not found")
	}
	if err != nil {
		return nil, fmt.Errorf("page service: get page: %w", err)
	}
	return &page, nil
}

// CreatePage stores a new page and mirrors it to the JSON page files.
func (s *PageService) CreatePage(ctx context.Context, input PageInput, editorID string) (*models.Page, error) {
	pageID := strings.TrimSpace(input.PageID)
	if !content.ValidPageID(pageID) || pageID == models.ContentDataPageID {
		return nil, apperrors.NewBadRequest("invalid page id")
	}

	raw, err := marshalSections(input.Content)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid page content")
	}

	published := true
	if input.IsPublished != nil {
		published = *input.IsPublished
	}

	page := &models.Page{
		PageID:       pageID,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Content:      raw,
		IsPublished:  published,
		LastModified: time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Create(page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("page service: create page: %w", err)
	}

	s.recordRevision(ctx, page, editorID)
	s.mirrorAndInvalidate(ctx, page)
	return page, nil
}

// UpdatePage applies a full update to an existing page, snapshots the previous
// content as a revision, refreshes the file mirror, and drops the cached copy.
func (s *PageService) UpdatePage(ctx context.Context, pageID string, input PageInput, editorID string) (*models.Page, error) {
	page, err := s.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	raw, err := marshalSections(input.Content)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid page content")
	}

	s.recordRevision(ctx, page, editorID)

	page.Title = strings.TrimSpace(input.Title)
	page.Description = strings.TrimSpace(input.Description)
	page.Content = raw
	if input.IsPublished != nil {
		page.IsPublished = *input.IsPublished
	}
	page.LastModified = time.Now().UTC()

	if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
		return nil, fmt.Errorf("page service: update page: %w", err)
	}

	s.mirrorAndInvalidate(ctx, page)
	return page, nil
}

// PatchPageContent merges the supplied sections into the page's stored content.
func (s *PageService) PatchPageContent(ctx context.Context, pageID string, sections map[string]any, editorID string) (*models.Page, error) {
	page, err := s.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	existing := content.Blob{}
	if len(page.Content) > 0 {
		if err := json.Unmarshal(page.Content, &existing); err != nil {
			s.log.Warn("stored page content is not an object, replacing",
				zap.String("page_id", pageID), zap.Error(err))
			existing = content.Blob{}
		}
	}
	merged := content.Merge(existing, content.Blob(sections))

	raw, err := marshalSections(merged)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid page content")
	}

	s.recordRevision(ctx, page, editorID)

	page.Content = raw
	page.LastModified = time.Now().UTC()

	if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
		return nil, fmt.Errorf("page service: patch page: %w", err)
	}

	s.mirrorAndInvalidate(ctx, page)
	return page, nil
}

// DeletePage removes a page row. The JSON mirror file is left in place so a
// subsequent json-to-db sync can restore it deliberately; the cache entry goes.
func (s *PageService) DeletePage(ctx context.Context, pageID string) error {
	page, err := s.GetPage(ctx, pageID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(page).Error; err != nil {
		return fmt.Errorf("page service: delete page: %w", err)
	}

	s.hybrid.InvalidatePage(pageID)
	return nil
}

// Revisions lists stored content snapshots for a page, newest first.
func (s *PageService) Revisions(ctx context.Context, pageID string, limit int) ([]models.ContentRevision, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var revisions []models.ContentRevision
	err := s.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("created_at desc").
		Limit(limit).
		Find(&revisions).Error
	if err != nil {
		return nil, fmt.Errorf("page service: list revisions: %w", err)
	}
	return revisions, nil
}

func (s *PageService) recordRevision(ctx context.Context, page *models.Page, editorID string) {
	revision := &models.ContentRevision{
		PageID:   page.PageID,
		Content:  page.Content,
		EditorID: editorID,
	}
	if err := s.db.WithContext(ctx).Create(revision).Error; err != nil {
		s.log.Warn("failed to record content revision",
			zap.String("page_id", page.PageID), zap.Error(err))
	}
}

// mirrorAndInvalidate performs the best-effort file write and cache drop that
// follow every successful database write. Mirror failures never fail the call.
func (s *PageService) mirrorAndInvalidate(ctx context.Context, page *models.Page) {
	sections := content.Blob{}
	if len(page.Content) > 0 {
		if err := json.Unmarshal(page.Content, &sections); err != nil {
			s.log.Warn("page content not mirrorable", zap.String("page_id", page.PageID), zap.Error(err))
		}
	}
	if err := s.sync.UpdatePageContent(ctx, page.PageID, sections); err != nil {
		s.log.Warn("file mirror update failed", zap.String("page_id", page.PageID), zap.Error(err))
	}
	s.hybrid.InvalidatePage(page.PageID)
}

func marshalSections(sections map[string]any) (datatypes.JSON, error) {
	if sections == nil {
		sections = map[string]any{}
	}
	raw, err := json.Marshal(sections)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
