package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/database/testutil"
)

func newTestStore(t *testing.T, mode StorageMode) (*Store, *gorm.DB, string) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	dataFile := filepath.Join(t.TempDir(), "content-data.json")

	store, err := NewStore(db, StoreConfig{Mode: mode, DataFile: dataFile})
	require.NoError(t, err)

	return store, db, dataFile
}

func TestParseStorageMode(t *testing.T) {
	mode, err := ParseStorageMode("")
	require.NoError(t, err)
	require.Equal(t, StorageModeFile, mode)

	mode, err = ParseStorageMode("database")
	require.NoError(t, err)
	require.Equal(t, StorageModeDatabase, mode)

	_, err = ParseStorageMode("redis")
	require.Error(t, err)
}

func TestContentDataFileModePrefersFile(t *testing.T) {
	store, _, _ := newTestStore(t, StorageModeFile)
	ctx := context.Background()

	require.NoError(t, store.WriteFile(Blob{"origin": "file"}))
	require.NoError(t, store.WriteDatabase(ctx, Blob{"origin": "database"}))

	blob := store.ContentData(ctx)
	require.Equal(t, "file", blob["origin"])
}

func TestContentDataFileModeFallsBackToDatabase(t *testing.T) {
	store, _, _ := newTestStore(t, StorageModeFile)
	ctx := context.Background()

	require.NoError(t, store.WriteDatabase(ctx, Blob{"origin": "database"}))

	blob := store.ContentData(ctx)
	require.Equal(t, "database", blob["origin"])
}

func TestContentDataDatabaseModeOverlaysFile(t *testing.T) {
	store, _, _ := newTestStore(t, StorageModeDatabase)
	ctx := context.Background()

	require.NoError(t, store.WriteFile(Blob{"origin": "file", "fileOnly": true}))
	require.NoError(t, store.WriteDatabase(ctx, Blob{"origin": "database"}))

	blob := store.ContentData(ctx)
	require.Equal(t, "database", blob["origin"])
	require.Equal(t, true, blob["fileOnly"])
}

func TestContentDataDatabaseModeEmptyRowDegradesToFile(t *testing.T) {
	store, _, _ := newTestStore(t, StorageModeDatabase)

	require.NoError(t, store.WriteFile(Blob{"origin": "file"}))

	blob := store.ContentData(context.Background())
	require.Equal(t, "file", blob["origin"])
}

func TestContentDataNeverErrors(t *testing.T) {
	store, _, dataFile := newTestStore(t, StorageModeFile)

	// Corrupt file yields an empty blob, not a failure.
	require.NoError(t, os.WriteFile(dataFile, []byte("{not json"), 0o644))

	blob := store.ContentData(context.Background())
	require.NotNil(t, blob)
	require.Empty(t, blob)
}

func TestWriteDatabaseUpsertsSentinelRow(t *testing.T) {
	store, db, _ := newTestStore(t, StorageModeDatabase)
	ctx := context.Background()

	require.NoError(t, store.WriteDatabase(ctx, Blob{"v": float64(1)}))
	require.NoError(t, store.WriteDatabase(ctx, Blob{"v": float64(2)}))

	var count int64
	require.NoError(t, db.Table("pages").Where("page_id = ?", "content-data").Count(&count).Error)
	require.EqualValues(t, 1, count)

	blob := store.ContentData(ctx)
	require.Equal(t, float64(2), blob["v"])
}

func TestDepartmentsIncludeAll(t *testing.T) {
	store, _, _ := newTestStore(t, StorageModeFile)
	ctx := context.Background()

	require.NoError(t, store.WriteFile(Blob{
		"departments": []any{
			map[string]any{"key": "engineering", "label": "Engineering"},
			map[string]any{"key": "customer-success"},
		},
	}))

	entries := store.Departments(ctx, false)
	require.Equal(t, []ListEntry{
		{Key: "engineering", Label: "Engineering"},
		{Key: "customer-success", Label: "Customer Success"},
	}, entries)

	withAll := store.Departments(ctx, true)
	require.Len(t, withAll, 3)
	require.Equal(t, ListEntry{Key: "all", Label: "All Departments"}, withAll[0])
	require.Equal(t, entries, withAll[1:])
}
