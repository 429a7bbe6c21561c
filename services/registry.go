package services

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"novascp/store"
	"novascp/types"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// ServersKey is the storage key holding the saved connection profiles
const ServersKey = "novascp_servers"

// DefaultSSHPort is used when a profile is saved without a port
const DefaultSSHPort = 22

var (
	ErrServerNotFound = errors.New("server not found")
	ErrInvalidServer  = errors.New("name, host and username are required")
)

// DefaultServers is the list shown when nothing has been saved yet
func DefaultServers() []types.ServerConnection {
	return []types.ServerConnection{
		{
			ID:            "srv-prod-web",
			Name:          "Production Web",
			Host:          "10.0.1.24",
			Username:      "ubuntu",
			Port:          22,
			LastConnected: "2 hours ago",
			Status:        types.ServerStatusOnline,
		},
		{
			ID:            "srv-staging-db",
			Name:          "Staging Database",
			Host:          "staging-db.internal",
			Username:      "admin",
			Port:          2222,
			LastConnected: "Yesterday",
			Status:        types.ServerStatusOnline,
		},
		{
			ID:            "srv-backup",
			Name:          "Backup Vault",
			Host:          "192.168.50.7",
			Username:      "backup",
			Port:          22,
			LastConnected: "3 days ago",
			Status:        types.ServerStatusOffline,
		},
	}
}

// ServerRegistry interface defines the methods for managing saved servers
type ServerRegistry interface {
	List() []types.ServerConnection
	Get(id string) (types.ServerConnection, bool)
	Add(input types.ServerInput) (types.ServerConnection, error)
	Update(server types.ServerConnection) (types.ServerConnection, error)
	Delete(id string) error
}

// serverRegistry keeps connection profiles in memory and rewrites the whole
// list to the store after every change
type serverRegistry struct {
	mu      sync.RWMutex
	servers []types.ServerConnection
	store   store.Store
}

// NewServerRegistry loads the saved profiles, falling back to the defaults
// when the store is empty, unreadable or holds corrupt data
func NewServerRegistry(s store.Store) ServerRegistry {
	return &serverRegistry{
		servers: loadServers(s),
		store:   s,
	}
}

func loadServers(s store.Store) []types.ServerConnection {
	if s == nil {
		return DefaultServers()
	}

	data, err := s.Get(ServersKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logrus.WithError(err).Warn("Failed to read saved servers, using defaults")
		}
		return DefaultServers()
	}

	var servers []types.ServerConnection
	if err := json.Unmarshal(data, &servers); err != nil || servers == nil {
		logrus.WithError(err).Warn("Saved servers are corrupt, using defaults")
		return DefaultServers()
	}
	return servers
}

// persistLocked writes the list; failures are logged and otherwise ignored
func (r *serverRegistry) persistLocked() {
	if r.store == nil {
		return
	}
	servers := r.servers
	if servers == nil {
		// an emptied list must not read back as missing
		servers = []types.ServerConnection{}
	}
	data, err := json.Marshal(servers)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode servers")
		return
	}
	if err := r.store.Set(ServersKey, data); err != nil {
		logrus.WithError(err).Warn("Failed to save servers")
	}
}

// List returns every saved server in insertion order
func (r *serverRegistry) List() []types.ServerConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.ServerConnection, len(r.servers))
	copy(out, r.servers)
	return out
}

// Get returns the server with the given ID
func (r *serverRegistry) Get(id string) (types.ServerConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Find(r.servers, func(s types.ServerConnection) bool {
		return s.ID == id
	})
}

// Add saves a new server. It is marked online and just connected.
func (r *serverRegistry) Add(input types.ServerInput) (types.ServerConnection, error) {
	if err := validateServer(input.Name, input.Host, input.Username); err != nil {
		return types.ServerConnection{}, err
	}

	port := input.Port
	if port <= 0 {
		port = DefaultSSHPort
	}

	server := types.ServerConnection{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(input.Name),
		Host:          strings.TrimSpace(input.Host),
		Username:      strings.TrimSpace(input.Username),
		Port:          port,
		LastConnected: "Just now",
		Status:        types.ServerStatusOnline,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.servers = append(r.servers, server)
	r.persistLocked()

	logrus.WithFields(logrus.Fields{
		"server_id": server.ID,
		"host":      server.Host,
	}).Info("Server added")
	return server, nil
}

// Update replaces the server with the same ID
func (r *serverRegistry) Update(server types.ServerConnection) (types.ServerConnection, error) {
	if err := validateServer(server.Name, server.Host, server.Username); err != nil {
		return types.ServerConnection{}, err
	}
	if server.Port <= 0 {
		server.Port = DefaultSSHPort
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, idx, ok := lo.FindIndexOf(r.servers, func(s types.ServerConnection) bool {
		return s.ID == server.ID
	})
	if !ok {
		return types.ServerConnection{}, ErrServerNotFound
	}

	r.servers[idx] = server
	r.persistLocked()
	return server, nil
}

// Delete removes the server with the given ID
func (r *serverRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := lo.Reject(r.servers, func(s types.ServerConnection, _ int) bool {
		return s.ID == id
	})
	if len(remaining) == len(r.servers) {
		return ErrServerNotFound
	}

	r.servers = remaining
	r.persistLocked()

	logrus.WithField("server_id", id).Info("Server deleted")
	return nil
}

func validateServer(name, host, username string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(host) == "" || strings.TrimSpace(username) == "" {
		return ErrInvalidServer
	}
	return nil
}
