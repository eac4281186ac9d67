package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arenalab/arena-server/internal/api/middleware"
	"github.com/arenalab/arena-server/internal/api/request"
	"github.com/arenalab/arena-server/internal/api/response"
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/registry"
	"github.com/arenalab/arena-server/internal/services/transition"
)

// RoomHandler handles room lifecycle endpoints
type RoomHandler struct {
	registry    *registry.Registry
	coordinator *transition.Coordinator
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(reg *registry.Registry, coord *transition.Coordinator) *RoomHandler {
	return &RoomHandler{
		registry:    reg,
		coordinator: coord,
	}
}

// JoinStage handles POST /api/v1/rooms/join
// Admits the caller into any joinable room of the requested stage, creating
// a fresh one when none has capacity.
func (h *RoomHandler) JoinStage(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.JoinStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	stage := model.Stage(req.Stage)
	if !stage.Valid() {
		WriteError(w, NewInvalidRequestError("unknown stage"))
		return
	}

	inst, err := h.registry.JoinOrCreate(stage, identity)
	if err != nil {
		WriteError(w, err)
		return
	}

	// The join may have completed the room and triggered a transition
	if _, err := h.coordinator.AdvanceIfReady(r.Context(), inst); err != nil {
		WriteError(w, err)
		return
	}

	h.writeCurrentRoom(w, identity)
}

// Join handles POST /api/v1/rooms/{id}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	id := model.RoomID(mux.Vars(r)["id"])

	if err := h.registry.JoinRoom(id, identity); err != nil {
		WriteError(w, err)
		return
	}

	inst, err := h.registry.Get(id)
	if err == nil {
		if _, err := h.coordinator.AdvanceIfReady(r.Context(), inst); err != nil {
			WriteError(w, err)
			return
		}
	}

	h.writeCurrentRoom(w, identity)
}

// Leave handles POST /api/v1/rooms/{id}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	id := model.RoomID(mux.Vars(r)["id"])

	if err := h.registry.LeaveRoom(id, identity); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Ready handles POST /api/v1/rooms/{id}/ready
func (h *RoomHandler) Ready(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	id := model.RoomID(mux.Vars(r)["id"])

	inst, err := h.registry.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := inst.MarkReady(identity); err != nil {
		WriteError(w, err)
		return
	}

	// The last ready-up may have fired the readiness condition
	if _, err := h.coordinator.AdvanceIfReady(r.Context(), inst); err != nil {
		WriteError(w, err)
		return
	}

	h.writeCurrentRoom(w, identity)
}

// SetContext handles POST /api/v1/rooms/{id}/context
// Writes one carry-over value that follows the match group through later
// stages.
func (h *RoomHandler) SetContext(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	id := model.RoomID(mux.Vars(r)["id"])

	var req request.SetContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Key == "" {
		WriteError(w, NewInvalidRequestError("key is required"))
		return
	}

	inst, err := h.registry.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}
	if !inst.Contains(identity) {
		WriteError(w, model.ErrNotInRoom)
		return
	}

	if err := inst.SetCarryValue(req.Key, req.Value); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomDetailFromInstance(inst))
}

// Complete handles POST /api/v1/rooms/{id}/complete
// Ends the current stage for the caller's room: an in-progress room moves
// its whole group to the next stage, a final-stage room produces its match
// summary and closes.
func (h *RoomHandler) Complete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	id := model.RoomID(mux.Vars(r)["id"])

	inst, err := h.registry.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}
	if !inst.Contains(identity) {
		WriteError(w, model.ErrNotInRoom)
		return
	}

	if _, hasNext := inst.Stage().Next(); hasNext {
		if inst.State() != model.RoomStateInProgress {
			WriteError(w, NewInvalidRequestError("room is not in progress"))
			return
		}
	}

	group := model.NewMatchGroup(inst.Participants(), inst.Carry())
	if _, err := h.coordinator.Advance(r.Context(), inst, group); err != nil {
		WriteError(w, err)
		return
	}

	h.writeCurrentRoom(w, identity)
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.RoomID(mux.Vars(r)["id"])

	inst, err := h.registry.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomDetailFromInstance(inst))
}

// writeCurrentRoom responds with the room the identity now occupies, which
// may differ from the one it addressed when a transition ran. An identity in
// no room (pipeline finished) gets 204.
func (h *RoomHandler) writeCurrentRoom(w http.ResponseWriter, identity model.Identity) {
	id, ok := h.registry.MemberRoom(identity)
	if !ok {
		response.NoContent(w)
		return
	}
	inst, err := h.registry.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomDetailFromInstance(inst))
}
