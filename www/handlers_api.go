package www

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"floorpilot/engine"
	"floorpilot/floors"
)

func (h *Handlers) apiListFloors(w http.ResponseWriter, r *http.Request) {
	out, err := h.engine.Dispatch("floor.list", engine.CommandArgs{})
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, out)
}

func (h *Handlers) apiActiveFloor(w http.ResponseWriter, r *http.Request) {
	out, err := h.engine.Dispatch("floor.active", engine.CommandArgs{})
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, out)
}

func (h *Handlers) apiPendingFloor(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.Manager().Pending())
}

func (h *Handlers) apiFloorSnapshot(w http.ResponseWriter, r *http.Request) {
	floorID := chi.URLParam(r, "id")
	data, ok := h.engine.Snapshots().Get(floorID)
	if !ok {
		h.jsonError(w, "no snapshot", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// apiConsumeSnapshot hands out the snapshot exactly once; the cache
// entry is gone afterwards. Meant for one-shot preview consumers that
// should not see a stale image on their next fetch.
func (h *Handlers) apiConsumeSnapshot(w http.ResponseWriter, r *http.Request) {
	floorID := chi.URLParam(r, "id")
	data, ok := h.engine.Snapshots().Take(floorID)
	if !ok {
		h.jsonError(w, "no snapshot", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (h *Handlers) apiRobotStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Dispatch("robot.status", engine.CommandArgs{})
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.jsonOK(w, map[string]any{"status": status})
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	messaging := false
	if mc := h.engine.MsgClient(); mc != nil {
		messaging = mc.IsConnected()
	}
	h.jsonOK(w, map[string]any{
		"status":    "ok",
		"robot":     h.engine.Device().IsReachable(),
		"messaging": messaging,
	})
}

func (h *Handlers) apiAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := h.engine.DB().ListAuditLog(limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}

func (h *Handlers) apiSwitchFloor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FloorID string `json:"floor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if _, err := h.engine.Dispatch("floor.switch", engine.CommandArgs{FloorID: req.FloorID}); err != nil {
		h.jsonError(w, err.Error(), statusForError(err))
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiSaveFloor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		HasDock *bool  `json:"has_dock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	hasDock := true
	if req.HasDock != nil {
		hasDock = *req.HasDock
	}
	out, err := h.engine.Dispatch("floor.save", engine.CommandArgs{Name: req.Name, HasDock: hasDock})
	if err != nil {
		h.jsonError(w, err.Error(), statusForError(err))
		return
	}
	h.jsonOK(w, map[string]any{"status": "ok", "floor_id": out})
}

func (h *Handlers) apiMapNewFloor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		HasDock *bool  `json:"has_dock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	hasDock := true
	if req.HasDock != nil {
		hasDock = *req.HasDock
	}
	out, err := h.engine.Dispatch("floor.map_new", engine.CommandArgs{Name: req.Name, HasDock: hasDock})
	if err != nil {
		h.jsonError(w, err.Error(), statusForError(err))
		return
	}
	h.jsonOK(w, map[string]any{"status": "ok", "floor_id": out})
}

func (h *Handlers) apiRenameFloor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FloorID string `json:"floor_id"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if _, err := h.engine.Dispatch("floor.rename", engine.CommandArgs{FloorID: req.FloorID, Name: req.Name}); err != nil {
		h.jsonError(w, err.Error(), statusForError(err))
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiSetFloorDock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FloorID string `json:"floor_id"`
		HasDock bool   `json:"has_dock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if _, err := h.engine.Dispatch("floor.set_dock", engine.CommandArgs{FloorID: req.FloorID, HasDock: req.HasDock}); err != nil {
		h.jsonError(w, err.Error(), statusForError(err))
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiDeleteFloor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FloorID string `json:"floor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if _, err := h.engine.Dispatch("floor.delete", engine.CommandArgs{FloorID: req.FloorID}); err != nil {
		h.jsonError(w, err.Error(), statusForError(err))
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

// statusForError maps workflow errors to HTTP codes so callers can
// distinguish "try again later" from "bad request".
func statusForError(err error) int {
	var noMap *floors.NoSavedMapError
	switch {
	case errors.Is(err, floors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, floors.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, floors.ErrDuplicateFloor),
		errors.Is(err, floors.ErrMappingInProgress),
		errors.Is(err, floors.ErrWorkflowRunning):
		return http.StatusConflict
	case errors.As(err, &noMap):
		return http.StatusConflict
	case errors.Is(err, engine.ErrUnknownCommand):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
