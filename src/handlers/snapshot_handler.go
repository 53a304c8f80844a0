package handlers

import (
	"fmt"
	"net/http"

	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/services"
	"github.com/username/nanopos/src/session"
	"github.com/username/nanopos/src/utils"
)

type SnapshotHandler struct {
	syncService  services.SyncService
	watchService services.WatchService
	session      *session.Session
}

func NewSnapshotHandler(syncService services.SyncService, watchService services.WatchService, sess *session.Session) *SnapshotHandler {
	return &SnapshotHandler{syncService: syncService, watchService: watchService, session: sess}
}

// HandleGetSnapshot serves the last snapshot, building one from the local
// store on a miss. Clients revalidate with If-None-Match.
func (h *SnapshotHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	snap, ok := h.syncService.Snapshot()
	if !ok {
		var err error
		snap, err = h.syncService.UpdateInfo(r.Context(), false)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	currentETag, etagErr := utils.GenerateETag(snap)
	if etagErr != nil {
		log.Error("Failed to generate ETag for snapshot", "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache, private")
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		if utils.ETagMatches(r, quotedETag) {
			log.Debug("ETag match for snapshot", "etag", currentETag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	utils.SendJSON(w, snap, http.StatusOK)
}

func (h *SnapshotHandler) HandleGetWatch(w http.ResponseWriter, r *http.Request) {
	status, ok := h.watchService.Status()
	if !ok {
		utils.SendJSONError(w, services.ErrNoActiveWatch.Error(), http.StatusNotFound)
		return
	}
	utils.SendJSON(w, status, http.StatusOK)
}

func (h *SnapshotHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"address": h.session.Address(),
		"sync":    h.syncService.Status(),
	}
	if status, ok := h.watchService.Status(); ok {
		resp["watch"] = status
	}
	utils.SendJSON(w, resp, http.StatusOK)
}
