package types

// ServerStatus is the reachability shown next to a saved host
type ServerStatus string

const (
	ServerStatusOnline  ServerStatus = "online"
	ServerStatusOffline ServerStatus = "offline"
)

// ServerConnection is a saved connection profile
type ServerConnection struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Host          string       `json:"host"`
	Username      string       `json:"username"`
	Port          int          `json:"port"`
	LastConnected string       `json:"lastConnected"`
	Status        ServerStatus `json:"status"`
}

// ServerInput carries the user supplied fields of a connection profile
type ServerInput struct {
	Name     string `json:"name" binding:"required"`
	Host     string `json:"host" binding:"required"`
	Username string `json:"username" binding:"required"`
	Port     int    `json:"port"`
}

// ConnectionStatus is the state of the currently selected server
type ConnectionStatus string

const (
	ConnectionStatusIdle       ConnectionStatus = "idle"
	ConnectionStatusConnecting ConnectionStatus = "connecting"
	ConnectionStatusConnected  ConnectionStatus = "connected"
)

// SessionState describes the selected server and its connection status
type SessionState struct {
	ServerID string            `json:"serverId,omitempty"`
	Server   *ServerConnection `json:"server,omitempty"`
	Status   ConnectionStatus  `json:"status"`
}
