package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wconnect/internal/store"
)

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, st.Set(store.KeyLastWalletID, "metaMask"))

	v, err := st.Get(store.KeyLastWalletID)
	require.NoError(t, err)
	assert.Equal(t, "metaMask", v)
}

func TestFileMissingKey(t *testing.T) {
	st, err := store.NewFile(t.TempDir())
	require.NoError(t, err)

	_, err = st.Get("nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, store.IsNotFound(err))
}

func TestFileRemoveIsIdempotent(t *testing.T) {
	st, err := store.NewFile(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, st.Set("k", "v"))
	require.NoError(t, st.Remove("k"))
	require.NoError(t, st.Remove("k"))

	_, err = st.Get("k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFileSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	st, err := store.NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, st.Set(store.KeyConnectionStart, "2026-08-30T10:00:00Z"))

	st2, err := store.NewFile(dir)
	require.NoError(t, err)
	v, err := st2.Get(store.KeyConnectionStart)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-30T10:00:00Z", v)
}

func TestFileCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	st, err := store.NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, st.Set("k", "v"))
}

func TestMemGateway(t *testing.T) {
	st := store.NewMem()

	_, err := st.Get("k")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.Set("k", "v"))
	v, err := st.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, st.Remove("k"))
	_, err = st.Get("k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPreferencesDefaultWhenAbsent(t *testing.T) {
	st := store.NewMem()
	prefs := store.LoadPreferences(st)
	assert.True(t, prefs.AutoReconnect)
	assert.Zero(t, prefs.PreferredChain)
}

func TestPreferencesDefaultWhenCorrupt(t *testing.T) {
	st := store.NewMem()
	require.NoError(t, st.Set(store.KeyUserPreferences, "{not json"))
	prefs := store.LoadPreferences(st)
	assert.Equal(t, store.DefaultPreferences(), prefs)
}

func TestPreferencesRoundTrip(t *testing.T) {
	st := store.NewMem()

	prefs := store.Preferences{AutoReconnect: false, PreferredChain: 137}
	require.NoError(t, store.SavePreferences(st, prefs))

	got := store.LoadPreferences(st)
	assert.Equal(t, prefs, got)
}
