package health

import (
	"encoding/json"
	"net/http"

	"github.com/searchforge/rank_fusion/internal/controller"
)

// Readyz reports the fusion defaults the service is running with. The
// controller validates them at construction, so a constructed controller is
// always ready.
func Readyz(ctrl *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		payload := map[string]any{"ready": true}
		if ctrl == nil {
			status = http.StatusServiceUnavailable
			payload["ready"] = false
		} else {
			opts := ctrl.Defaults()
			payload["normalization"] = opts.Normalization
			payload["conflation"] = opts.Conflation
			payload["degenerate_policy"] = opts.Degenerate
			payload["tie_break"] = opts.TieBreak
			payload["duplicates"] = opts.Duplicates
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}
}
