package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/kanjidex/internal/storage"
)

func TestSaveAndLoad(t *testing.T) {
	kv := storage.NewMemory()
	s := New(kv)

	key, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, key)

	require.NoError(t, s.Save("  abcd-1234  "))
	key, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "abcd-1234", key)

	raw, err := kv.Get(storage.KeyCredential)
	require.NoError(t, err)
	assert.Equal(t, "abcd-1234", string(raw))
}

func TestClear(t *testing.T) {
	s := New(storage.NewMemory())

	require.NoError(t, s.Clear())
	require.NoError(t, s.Save("abcd-1234"))
	require.NoError(t, s.Clear())

	key, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestSaveRejectsBlank(t *testing.T) {
	kv := storage.NewMemory()
	s := New(kv)

	err := s.Save(" \t ")
	assert.ErrorIs(t, err, ErrBlank)
	assert.Equal(t, 0, kv.Writes(storage.KeyCredential))
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	kv := storage.NewMemory()
	kv.SetErr = storage.ErrInjected
	kv.GetErr = storage.ErrInjected
	s := New(kv)

	assert.ErrorIs(t, s.Save("key"), storage.ErrInjected)
	_, err := s.Load()
	assert.ErrorIs(t, err, storage.ErrInjected)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "•••", Mask("abc"))
	assert.Equal(t, "••••5678", Mask("12345678"))
}
