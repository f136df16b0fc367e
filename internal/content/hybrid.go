package content

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/cache"
	"github.com/canopyhq/canopy/internal/models"
	"github.com/canopyhq/canopy/pkg/logger"
	"github.com/canopyhq/canopy/pkg/metrics"
)

// ErrPageNotFound marks a page absent from both the database and the JSON
// mirror. Absent pages are never cached.
var ErrPageNotFound = errors.New("content: page not found")

// pageKeyPattern matches every page cache key regardless of page id.
var pageKeyPattern = regexp.MustCompile(`^page:`)

// PageCacheKey derives the cache key for a page id.
func PageCacheKey(pageID string) string {
	return "page:" + pageID
}

// PageView is the cached, store-agnostic representation of one page.
type PageView struct {
	PageID       string    `json:"page_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Published    bool      `json:"published"`
	LastModified time.Time `json:"last_modified"`
	Sections     Blob      `json:"sections"`
}

// PageContentResult carries a page view plus cache provenance.
type PageContentResult struct {
	Page      *PageView    `json:"page"`
	Source    cache.Source `json:"source"`
	FromCache bool         `json:"from_cache"`
}

// HybridService serves page content with a preference order of fresh cache,
// then database, then static JSON file, populating the cache on every miss.
type HybridService struct {
	db     *gorm.DB
	memory *cache.Memory
	files  *PageFiles
	log    *zap.Logger
}

// NewHybridService constructs a HybridService.
func NewHybridService(db *gorm.DB, memory *cache.Memory, files *PageFiles) (*HybridService, error) {
	if db == nil {
		return nil, errors.New("content hybrid: db is required")
	}
	if memory == nil {
		return nil, errors.New("content hybrid: cache is required")
	}
	if files == nil {
		return nil, errors.New("content hybrid: page files are required")
	}

	return &HybridService{
		db:     db,
		memory: memory,
		files:  files,
		log:    logger.WithModule("content-hybrid"),
	}, nil
}

// PageContent resolves a page through the cache. A (nil, nil) return means the
// page exists in neither store; database errors propagate unretried so the
// caller can degrade to its own fallback.
func (h *HybridService) PageContent(ctx context.Context, pageID string) (*PageContentResult, error) {
	if !ValidPageID(pageID) {
		return nil, nil
	}

	result, err := h.memory.GetOrSet(ctx, PageCacheKey(pageID), h.pageFactory(pageID), 0)
	if err != nil {
		if errors.Is(err, ErrPageNotFound) {
			metrics.CacheRequests.WithLabelValues("miss").Inc()
			return nil, nil
		}
		return nil, err
	}

	if result.FromCache {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	}

	view, ok := result.Data.(*PageView)
	if !ok {
		// Should not happen; treat a corrupted entry as a miss.
		h.memory.Delete(PageCacheKey(pageID))
		return nil, nil
	}

	return &PageContentResult{
		Page:      view,
		Source:    result.Source,
		FromCache: result.FromCache,
	}, nil
}

// InvalidatePages drops every cached page entry, returning the count removed.
// Called after sync runs and admin page writes.
func (h *HybridService) InvalidatePages() int {
	removed := h.memory.InvalidateByPattern(pageKeyPattern)
	if removed > 0 {
		h.log.Debug("page cache invalidated", zap.Int("removed", removed))
	}
	return removed
}

// InvalidatePage drops a single page's cached entry.
func (h *HybridService) InvalidatePage(pageID string) bool {
	return h.memory.Delete(PageCacheKey(pageID))
}

// CacheStats exposes the underlying cache counters.
func (h *HybridService) CacheStats() cache.Stats {
	return h.memory.GetStats()
}

// ClearCache empties the cache entirely.
func (h *HybridService) ClearCache() {
	h.memory.Clear()
}

func (h *HybridService) pageFactory(pageID string) cache.Factory {
	return func(ctx context.Context) (any, cache.Source, error) {
		var row models.Page
		err := h.db.WithContext(ctx).Take(&row, "page_id = ?", pageID).Error
		switch {
		case err == nil:
			return viewFromRecord(&row), cache.SourceDatabase, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, "", err
		}

		doc, ok := h.files.Read(pageID)
		if !ok {
			return nil, "", ErrPageNotFound
		}
		return viewFromDocument(doc), cache.SourceJSON, nil
	}
}

func viewFromRecord(page *models.Page) *PageView {
	sections := Blob{}
	if len(page.Content) > 0 {
		if err := json.Unmarshal(page.Content, &sections); err != nil {
			sections = Blob{}
		}
	}

	return &PageView{
		PageID:       page.PageID,
		Title:        page.Title,
		Description:  page.Description,
		Published:    page.IsPublished,
		LastModified: page.LastModified,
		Sections:     sections,
	}
}

func viewFromDocument(doc *PageDocument) *PageView {
	sections := doc.Sections
	if sections == nil {
		sections = Blob{}
	}

	return &PageView{
		PageID:       doc.PageID,
		Title:        doc.Title,
		Description:  doc.Description,
		Published:    doc.Published,
		LastModified: doc.LastModified,
		Sections:     sections,
	}
}
