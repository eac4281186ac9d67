package handler

import (
	"net/http"

	"github.com/arenalab/arena-server/internal/api/response"
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/directory"
	"github.com/arenalab/arena-server/internal/web/sse"
)

// DirectoryHandler handles room directory endpoints
type DirectoryHandler struct {
	directory *directory.Directory
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(dir *directory.Directory) *DirectoryHandler {
	return &DirectoryHandler{directory: dir}
}

// Snapshot handles GET /api/v1/directory
// An optional ?stage= query restricts the listing to one pipeline stage.
func (h *DirectoryHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	filter, err := stageFilter(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	snap := h.directory.Snapshot(filter)
	response.JSON(w, http.StatusOK, response.DirectorySnapshotFromModel(snap))
}

// Stream handles GET /api/v1/directory/stream
// Streams the snapshot followed by live deltas over SSE.
func (h *DirectoryHandler) Stream(w http.ResponseWriter, r *http.Request) {
	filter, err := stageFilter(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	sse.ServeDirectory(w, r, h.directory, filter)
}

func stageFilter(r *http.Request) (model.Stage, error) {
	raw := r.URL.Query().Get("stage")
	if raw == "" {
		return "", nil
	}
	stage := model.Stage(raw)
	if !stage.Valid() {
		return "", NewInvalidRequestError("unknown stage")
	}
	return stage, nil
}
