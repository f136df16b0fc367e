package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/cache"
	"github.com/canopyhq/canopy/internal/content"
	"github.com/canopyhq/canopy/internal/database/testutil"
	"github.com/canopyhq/canopy/internal/models"
	apperrors "github.com/canopyhq/canopy/pkg/errors"
)

type pageServiceFixture struct {
	svc    *PageService
	hybrid *content.HybridService
	files  *content.PageFiles
	db     *gorm.DB
}

func newPageServiceFixture(t *testing.T) pageServiceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	dir := t.TempDir()

	store, err := content.NewStore(db, content.StoreConfig{
		Mode:     content.StorageModeFile,
		DataFile: filepath.Join(dir, "content-data.json"),
	})
	require.NoError(t, err)

	files, err := content.NewPageFiles(filepath.Join(dir, "pages"))
	require.NoError(t, err)

	syncSvc, err := content.NewSyncService(db, store, files)
	require.NoError(t, err)

	hybrid, err := content.NewHybridService(db, cache.NewMemory(time.Minute), files)
	require.NoError(t, err)

	svc, err := NewPageService(db, syncSvc, hybrid)
	require.NoError(t, err)

	return pageServiceFixture{svc: svc, hybrid: hybrid, files: files, db: db}
}

func TestCreatePageMirrorsToFile(t *testing.T) {
	f := newPageServiceFixture(t)
	ctx := context.Background()

	page, err := f.svc.CreatePage(ctx, PageInput{
		PageID:      "home",
		Title:       "Home",
		Description: "Landing page",
		Content:     map[string]any{"hero": map[string]any{"heading": "Welcome"}},
	}, "editor-1")
	require.NoError(t, err)
	require.True(t, page.IsPublished)

	doc, ok := f.files.Read("home")
	require.True(t, ok)
	require.Equal(t, "Home", doc.Title)
	require.Contains(t, doc.Sections, "hero")
}

func TestCreatePageRejectsInvalidAndReservedIDs(t *testing.T) {
	f := newPageServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePage(ctx, PageInput{PageID: "../evil", Title: "x"}, "")
	require.Error(t, err)

	_, err = f.svc.CreatePage(ctx, PageInput{PageID: models.ContentDataPageID, Title: "x"}, "")
	require.Error(t, err)
}

func TestCreatePageDuplicateConflicts(t *testing.T) {
	f := newPageServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePage(ctx, PageInput{PageID: "home", Title: "Home"}, "")
	require.NoError(t, err)

	_, err = f.svc.CreatePage(ctx, PageInput{PageID: "home", Title: "Home Again"}, "")
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdatePageRecordsRevisionAndInvalidatesCache(t *testing.T) {
	f := newPageServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePage(ctx, PageInput{
		PageID:  "home",
		Title:   "Home",
		Content: map[string]any{"hero": "v1"},
	}, "editor-1")
	require.NoError(t, err)

	// Warm the cache.
	cached, err := f.hybrid.PageContent(ctx, "home")
	require.NoError(t, err)
	require.Equal(t, "Home", cached.Page.Title)

	_, err = f.svc.UpdatePage(ctx, "home", PageInput{
		PageID:  "home",
		Title:   "Home v2",
		Content: map[string]any{"hero": "v2"},
	}, "editor-2")
	require.NoError(t, err)

	// The stale cached view was dropped by the update.
	fresh, err := f.hybrid.PageContent(ctx, "home")
	require.NoError(t, err)
	require.False(t, fresh.FromCache)
	require.Equal(t, "Home v2", fresh.Page.Title)

	revisions, err := f.svc.Revisions(ctx, "home", 0)
	require.NoError(t, err)
	require.Len(t, revisions, 2) // create + update snapshots
}

func TestPatchPageContentMergesSections(t *testing.T) {
	f := newPageServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePage(ctx, PageInput{
		PageID:  "home",
		Title:   "Home",
		Content: map[string]any{"hero": "v1", "footer": "keep"},
	}, "")
	require.NoError(t, err)

	page, err := f.svc.PatchPageContent(ctx, "home", map[string]any{"hero": "v2"}, "")
	require.NoError(t, err)

	require.Contains(t, string(page.Content), `"hero":"v2"`)
	require.Contains(t, string(page.Content), `"footer":"keep"`)
}

func TestDeletePageKeepsFileMirror(t *testing.T) {
	f := newPageServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePage(ctx, PageInput{PageID: "home", Title: "Home"}, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePage(ctx, "home"))

	_, err = f.svc.GetPage(ctx, "home")
	require.Error(t, err)

	// The mirror file stays for deliberate restores via sync.
	_, ok := f.files.Read("home")
	require.True(t, ok)
}

func TestListPagesExcludesSentinel(t *testing.T) {
	f := newPageServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePage(ctx, PageInput{PageID: "home", Title: "Home"}, "")
	require.NoError(t, err)

	require.NoError(t, f.db.Create(&models.Page{
		PageID: models.ContentDataPageID,
		Title:  "Shared Content Data",
	}).Error)

	pages, err := f.svc.ListPages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "home", pages[0].PageID)
}
