package content

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/database/testutil"
	"github.com/canopyhq/canopy/internal/models"
)

func newTestSync(t *testing.T, mode StorageMode) (*SyncService, *Store, *PageFiles, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	dir := t.TempDir()

	store, err := NewStore(db, StoreConfig{
		Mode:     mode,
		DataFile: filepath.Join(dir, "content-data.json"),
	})
	require.NoError(t, err)

	files, err := NewPageFiles(filepath.Join(dir, "pages"))
	require.NoError(t, err)

	svc, err := NewSyncService(db, store, files)
	require.NoError(t, err)

	return svc, store, files, db
}

func writePageFile(t *testing.T, files *PageFiles, id, title string, published bool, sections Blob) {
	t.Helper()
	require.NoError(t, files.Write(&PageDocument{
		PageID:       id,
		Title:        title,
		Published:    published,
		LastModified: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Sections:     sections,
	}))
}

func loadPage(t *testing.T, db *gorm.DB, id string) models.Page {
	t.Helper()
	var page models.Page
	require.NoError(t, db.Take(&page, "page_id = ?", id).Error)
	return page
}

func TestSyncJSONToDatabaseIsIdempotent(t *testing.T) {
	svc, _, files, db := newTestSync(t, StorageModeFile)
	ctx := context.Background()

	writePageFile(t, files, "home", "Home", true, Blob{"hero": map[string]any{"heading": "Welcome"}})
	writePageFile(t, files, "about", "About Us", true, Blob{"team": []any{"a", "b"}})

	synced, err := svc.SyncJSONToDatabase(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, synced)

	first := loadPage(t, db, "home")

	synced, err = svc.SyncJSONToDatabase(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, synced)

	var count int64
	require.NoError(t, db.Model(&models.Page{}).Count(&count).Error)
	require.EqualValues(t, 2, count)

	second := loadPage(t, db, "home")
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Title, second.Title)
	require.JSONEq(t, string(first.Content), string(second.Content))
}

func TestSyncDatabaseToJSONRoundTrip(t *testing.T) {
	svc, _, files, db := newTestSync(t, StorageModeFile)
	ctx := context.Background()

	sections, err := json.Marshal(Blob{"hero": map[string]any{"heading": "Welcome"}})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Page{
		PageID:       "home",
		Title:        "Home",
		Description:  "Landing page",
		Content:      sections,
		IsPublished:  true,
		LastModified: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}).Error)

	synced, err := svc.SyncDatabaseToJSON(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, synced)

	doc, ok := files.Read("home")
	require.True(t, ok)
	require.Equal(t, "Home", doc.Title)
	require.Equal(t, "Landing page", doc.Description)
	require.True(t, doc.Published)
	require.Contains(t, doc.Sections, "hero")

	// Syncing back does not change the database row.
	before := loadPage(t, db, "home")
	_, err = svc.SyncJSONToDatabase(ctx)
	require.NoError(t, err)
	after := loadPage(t, db, "home")

	require.Equal(t, before.ID, after.ID)
	require.Equal(t, before.Title, after.Title)
	require.Equal(t, before.IsPublished, after.IsPublished)
	require.JSONEq(t, string(before.Content), string(after.Content))
}

func TestSyncDatabaseToJSONExcludesSentinel(t *testing.T) {
	svc, store, files, _ := newTestSync(t, StorageModeDatabase)
	ctx := context.Background()

	require.NoError(t, store.WriteDatabase(ctx, Blob{"departments": []any{}}))

	synced, err := svc.SyncDatabaseToJSON(ctx)
	require.NoError(t, err)
	require.Zero(t, synced)

	ids, err := files.List()
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestValidateConsistencyNamesDriftingPages(t *testing.T) {
	svc, _, files, db := newTestSync(t, StorageModeFile)
	ctx := context.Background()

	// "home" exists on both sides but the title drifted.
	writePageFile(t, files, "home", "Home v2", true, Blob{})
	require.NoError(t, db.Create(&models.Page{
		PageID:      "home",
		Title:       "Home",
		IsPublished: true,
	}).Error)

	// "careers" exists only in the database, "about" only on disk.
	require.NoError(t, db.Create(&models.Page{
		PageID:      "careers",
		Title:       "Careers",
		IsPublished: true,
	}).Error)
	writePageFile(t, files, "about", "About", true, Blob{})

	report, err := svc.ValidateConsistency(ctx)
	require.NoError(t, err)
	require.False(t, report.Consistent)
	require.Contains(t, report.Issues, `page "home" title differs between stores`)
	require.Contains(t, report.Issues, `page "careers" exists in database but not in file mirror`)
	require.Contains(t, report.Issues, `page "about" exists in file mirror but not in database`)
}

func TestValidateConsistencyCleanState(t *testing.T) {
	svc, _, files, db := newTestSync(t, StorageModeFile)
	ctx := context.Background()

	writePageFile(t, files, "home", "Home", true, Blob{"hero": "x"})
	_, err := svc.SyncJSONToDatabase(ctx)
	require.NoError(t, err)

	report, err := svc.ValidateConsistency(ctx)
	require.NoError(t, err)
	require.True(t, report.Consistent)
	require.Empty(t, report.Issues)

	// Publication drift is also caught.
	require.NoError(t, db.Model(&models.Page{}).
		Where("page_id = ?", "home").
		Update("is_published", false).Error)

	report, err = svc.ValidateConsistency(ctx)
	require.NoError(t, err)
	require.Contains(t, report.Issues, `page "home" publication state differs between stores`)
}

func TestUpdateContentDataMergesAndMirrors(t *testing.T) {
	svc, store, _, db := newTestSync(t, StorageModeFile)
	ctx := context.Background()

	require.NoError(t, store.WriteFile(Blob{"siteName": "Canopy", "tagline": "old"}))

	merged, err := svc.UpdateContentData(ctx, Blob{"tagline": "new"})
	require.NoError(t, err)
	require.Equal(t, "Canopy", merged["siteName"])
	require.Equal(t, "new", merged["tagline"])

	// The primary file store holds the merge.
	blob := store.ContentData(ctx)
	require.Equal(t, "new", blob["tagline"])

	// The database mirror was written too.
	row := loadPage(t, db, models.ContentDataPageID)
	var mirror Blob
	require.NoError(t, json.Unmarshal(row.Content, &mirror))
	require.Equal(t, "new", mirror["tagline"])
}

func TestUpdateContentDataFansOutJobs(t *testing.T) {
	svc, _, _, db := newTestSync(t, StorageModeFile)
	ctx := context.Background()

	_, err := svc.UpdateContentData(ctx, Blob{
		"jobs": []any{
			map[string]any{
				"slug":       "backend-engineer",
				"title":      "Backend Engineer",
				"department": "engineering",
				"type":       "full-time",
			},
			map[string]any{"title": "no slug, skipped"},
		},
	})
	require.NoError(t, err)

	var posting models.JobPosting
	require.NoError(t, db.Take(&posting, "slug = ?", "backend-engineer").Error)
	require.Equal(t, "Backend Engineer", posting.Title)
	require.Equal(t, "engineering", posting.Department)

	var count int64
	require.NoError(t, db.Model(&models.JobPosting{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestUpdatePageContentRejectsInvalidID(t *testing.T) {
	svc, _, files, _ := newTestSync(t, StorageModeFile)

	require.Error(t, svc.UpdatePageContent(context.Background(), "../etc/passwd", Blob{}))

	require.NoError(t, svc.UpdatePageContent(context.Background(), "home", Blob{"hero": "x"}))
	doc, ok := files.Read("home")
	require.True(t, ok)
	require.Equal(t, "x", doc.Sections["hero"])
}

func TestRunBothDirectionsWithValidation(t *testing.T) {
	svc, _, files, db := newTestSync(t, StorageModeFile)
	ctx := context.Background()

	writePageFile(t, files, "home", "Home", true, Blob{"hero": "x"})

	result, err := svc.Run(ctx, DirectionBoth, true)
	require.NoError(t, err)
	require.Equal(t, 1, result.PagesToDatabase)
	require.Equal(t, 1, result.PagesToFiles)
	require.NotNil(t, result.Validation)
	require.True(t, result.Validation.Consistent)
	require.False(t, result.CompletedAt.IsZero())

	var setting models.SystemSetting
	require.NoError(t, db.Take(&setting, "key = ?", "sync.last_direction").Error)
	require.Equal(t, string(DirectionBoth), setting.Value)

	_, err = svc.Run(ctx, Direction("sideways"), false)
	require.Error(t, err)
}
