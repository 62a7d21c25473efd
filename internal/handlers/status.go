// internal/handlers/status.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bang/internal/game"
)

// StatusHandler serves a spectator snapshot of the session as JSON. It takes
// the same admission key as the websocket endpoint.
func StatusHandler(gw *Gateway, admissionKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !keyMatches(extractAdmissionKey(r), admissionKey) {
			http.Error(w, "invalid admission key", http.StatusForbidden)
			return
		}

		var snap game.ObfGameState
		gw.View(func(g *game.Game) {
			snap = g.Snapshot(uuid.Nil)
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}
