package handler

import (
	"net/http"

	"github.com/arenalab/arena-server/internal/api/response"
	"github.com/arenalab/arena-server/internal/services/directory"
	"github.com/arenalab/arena-server/internal/services/registry"
)

// MonitorHandler handles the operator-only monitor surface
type MonitorHandler struct {
	registry  *registry.Registry
	directory *directory.Directory
}

// NewMonitorHandler creates a new monitor handler
func NewMonitorHandler(reg *registry.Registry, dir *directory.Directory) *MonitorHandler {
	return &MonitorHandler{
		registry:  reg,
		directory: dir,
	}
}

// monitorRoomType is the monitor view of one registered room type
type monitorRoomType struct {
	Stage        string `json:"stage"`
	DisplayName  string `json:"display_name"`
	Advertised   bool   `json:"advertised"`
	MaxOccupancy int    `json:"max_occupancy"`
}

// monitorStats is the monitor overview
type monitorStats struct {
	Rooms       int `json:"rooms"`
	Subscribers int `json:"subscribers"`
}

// Rooms handles GET /monitor/rooms
// Lists every live instance, advertised or not, with its participants.
func (h *MonitorHandler) Rooms(w http.ResponseWriter, r *http.Request) {
	instances := h.registry.Instances()
	out := make([]response.RoomDetail, 0, len(instances))
	for _, inst := range instances {
		out = append(out, response.RoomDetailFromInstance(inst))
	}
	response.JSON(w, http.StatusOK, out)
}

// Types handles GET /monitor/types
func (h *MonitorHandler) Types(w http.ResponseWriter, r *http.Request) {
	types := h.registry.Types()
	out := make([]monitorRoomType, 0, len(types))
	for _, rt := range types {
		out = append(out, monitorRoomType{
			Stage:        string(rt.Stage),
			DisplayName:  rt.DisplayName,
			Advertised:   rt.Advertised,
			MaxOccupancy: rt.Rules.MaxOccupancy,
		})
	}
	response.JSON(w, http.StatusOK, out)
}

// Stats handles GET /monitor/stats
func (h *MonitorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, monitorStats{
		Rooms:       len(h.registry.Instances()),
		Subscribers: h.directory.SubscriberCount(),
	})
}
