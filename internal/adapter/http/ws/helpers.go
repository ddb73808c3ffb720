package wshandler

import (
	"encoding/json"
	"net/http"

	"github.com/Temutjin2k/ride-hail-client/internal/service/reconciler"
)

// errorResponse answers a handshake that was refused before the upgrade.
func errorResponse(w http.ResponseWriter, status int, message any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

type message struct {
	Type string          `json:"type"`
	Data reconciler.View `json:"data"`
}

// liveView renders the reconciler's view when it is written, so a queued
// notification never carries a snapshot older than the one on the wire.
type liveView struct {
	rec *reconciler.Reconciler
}

func (l liveView) MarshalJSON() ([]byte, error) {
	return json.Marshal(message{Type: "view", Data: l.rec.View()})
}
