package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"`      // "healthy" or "idle"
	Connections ConnectionStats `json:"connections"` // Client connection stats
	Clients     []ClientInfo    `json:"clients"`     // List of connected clients
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalConnected   int `json:"totalConnected"`   // Live sockets
	TotalOnlineUsers int `json:"totalOnlineUsers"` // Distinct users with at least one socket
	MultiDeviceUsers int `json:"multiDeviceUsers"` // Users with more than one socket
	Unidentified     int `json:"unidentified"`     // Sockets that have not sent user-connect yet
}

// ClientInfo contains information about a connected client
type ClientInfo struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId,omitempty"`
	ConnectedAt string `json:"connectedAt"` // ISO timestamp
}
