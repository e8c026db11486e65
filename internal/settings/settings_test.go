package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "settings.bdb"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func TestLoadFreshStoreIsEmpty(t *testing.T) {
	store := openTestStore(t)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Settings{}, loaded)
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	store := openTestStore(t)

	saved := Settings{APIKey: "sk-secret", Provider: "anthropic"}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestSaveOverwritesOnEveryChange(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Save(Settings{APIKey: "first", Provider: "anthropic"}))
	require.NoError(t, store.Save(Settings{APIKey: "second", Provider: "openai"}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Settings{APIKey: "second", Provider: "openai"}, loaded)
}

func TestSettingsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.bdb")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(Settings{APIKey: "persisted", Provider: "openai"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, Settings{APIKey: "persisted", Provider: "openai"}, loaded)
}
