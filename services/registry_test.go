package services

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"novascp/store"
	"novascp/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore refuses every operation
type failingStore struct{}

func (failingStore) Get(string) ([]byte, error) { return nil, errors.New("storage unavailable") }
func (failingStore) Set(string, []byte) error   { return errors.New("storage unavailable") }
func (failingStore) Close() error               { return nil }

func newFileStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "storage.json"))
	require.NoError(t, err)
	return s
}

func TestRegistryFallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name  string
		store func(t *testing.T) store.Store
	}{
		{
			name:  "missing data",
			store: newFileStore,
		},
		{
			name: "corrupt data",
			store: func(t *testing.T) store.Store {
				s := newFileStore(t)
				require.NoError(t, s.Set(ServersKey, []byte(`{"not":"a list"}`)))
				return s
			},
		},
		{
			name:  "unavailable storage",
			store: func(t *testing.T) store.Store { return failingStore{} },
		},
		{
			name:  "no storage",
			store: func(t *testing.T) store.Store { return nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewServerRegistry(tt.store(t))
			assert.Equal(t, DefaultServers(), registry.List())
		})
	}
}

func TestRegistryPersistsEveryMutation(t *testing.T) {
	s := newFileStore(t)
	registry := NewServerRegistry(s)

	added, err := registry.Add(types.ServerInput{Name: "Edge", Host: "edge.example.com", Username: "deploy"})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, DefaultSSHPort, added.Port)
	assert.Equal(t, types.ServerStatusOnline, added.Status)
	assert.Equal(t, "Just now", added.LastConnected)

	var saved []types.ServerConnection
	data, err := s.Get(ServersKey)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Len(t, saved, len(DefaultServers())+1)

	added.Port = 2200
	_, err = registry.Update(added)
	require.NoError(t, err)

	require.NoError(t, registry.Delete("srv-backup"))

	// a fresh registry over the same storage sees the same list
	reloaded := NewServerRegistry(s)
	assert.Equal(t, registry.List(), reloaded.List())

	got, ok := reloaded.Get(added.ID)
	require.True(t, ok)
	assert.Equal(t, 2200, got.Port)
	_, ok = reloaded.Get("srv-backup")
	assert.False(t, ok)
}

func TestRegistryKeepsAnEmptyList(t *testing.T) {
	s := newFileStore(t)
	registry := NewServerRegistry(s)
	for _, server := range registry.List() {
		require.NoError(t, registry.Delete(server.ID))
	}

	assert.Empty(t, NewServerRegistry(s).List())
}

func TestRegistryValidation(t *testing.T) {
	registry := NewServerRegistry(nil)

	_, err := registry.Add(types.ServerInput{Name: "x", Host: " ", Username: "u"})
	assert.ErrorIs(t, err, ErrInvalidServer)

	_, err = registry.Update(types.ServerConnection{ID: "nope", Name: "x", Host: "h", Username: "u"})
	assert.ErrorIs(t, err, ErrServerNotFound)

	assert.ErrorIs(t, registry.Delete("nope"), ErrServerNotFound)
}

func TestRegistrySurvivesWriteFailures(t *testing.T) {
	registry := NewServerRegistry(failingStore{})

	added, err := registry.Add(types.ServerInput{Name: "Edge", Host: "edge", Username: "root", Port: 2022})
	require.NoError(t, err)

	got, ok := registry.Get(added.ID)
	require.True(t, ok)
	assert.Equal(t, 2022, got.Port)
}
