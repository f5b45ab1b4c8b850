package hub

import (
	"sort"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PresenceView is what the monitor reads from the presence registry.
type PresenceView interface {
	UserOf(connID string) (primitive.ObjectID, bool)
	ConnectionCounts() map[primitive.ObjectID]int
}

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub      *Hub
	presence PresenceView
}

func NewMonitorService(hub *Hub, presence PresenceView) *MonitorService {
	return &MonitorService{hub: hub, presence: presence}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	clients := ms.getClientList()
	connectionStats := ms.getConnectionStats(clients)

	status := "healthy"
	if connectionStats.TotalConnected == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: connectionStats,
		Clients:     clients,
	}
}

func (ms *MonitorService) getConnectionStats(clients []model.ClientInfo) model.ConnectionStats {
	stats := model.ConnectionStats{TotalConnected: len(clients)}

	for _, client := range clients {
		if client.UserID == "" {
			stats.Unidentified++
		}
	}

	for _, n := range ms.presence.ConnectionCounts() {
		stats.TotalOnlineUsers++
		if n > 1 {
			stats.MultiDeviceUsers++
		}
	}

	return stats
}

// getClientList returns every live connection, oldest first.
func (ms *MonitorService) getClientList() []model.ClientInfo {
	live := ms.hub.clients()
	sort.Slice(live, func(i, j int) bool { return live[i].connectedAt.Before(live[j].connectedAt) })

	clients := make([]model.ClientInfo, 0, len(live))
	for _, client := range live {
		info := model.ClientInfo{
			ClientID:    client.id,
			ConnectedAt: client.connectedAt.Format(time.RFC3339),
		}
		if userID, ok := ms.presence.UserOf(client.id); ok {
			info.UserID = userID.Hex()
		}
		clients = append(clients, info)
	}

	return clients
}
