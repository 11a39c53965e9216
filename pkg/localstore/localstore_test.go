package localstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreContract(t *testing.T, s Store) {
	t.Helper()

	_, err := s.Load("slots")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save("slots", []byte("one")))
	got, err := s.Load("slots")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	// Saves are whole-namespace upserts.
	require.NoError(t, s.Save("slots", []byte("two")))
	got, err = s.Load("slots")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	require.NoError(t, s.Save("lessons", []byte("other")))
	got, err = s.Load("slots")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got, "namespaces are independent")
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	testStoreContract(t, s)
}

func TestMemoryStoreCopiesBlobs(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	blob := []byte("abc")
	require.NoError(t, s.Save("slots", blob))
	blob[0] = 'x'

	got, err := s.Load("slots")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replica.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	testStoreContract(t, s)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replica.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save("slots", []byte("durable")))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load("slots")
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), got)
}
