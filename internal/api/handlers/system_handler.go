package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tasklane/tasklane-be/internal/monitoring"
)

// SystemHandler serves a host resource snapshot for the settings/status page.
type SystemHandler struct {
	dataPath string
}

// NewSystemHandler creates a new SystemHandler. Disk usage is reported for
// the given data path.
func NewSystemHandler(dataPath string) *SystemHandler {
	return &SystemHandler{dataPath: dataPath}
}

// Stats returns cpu/memory/disk usage and host uptime.
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := monitoring.CollectStats(h.dataPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to collect system stats")
		writeError(w, http.StatusInternalServerError, "failed to collect system stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
