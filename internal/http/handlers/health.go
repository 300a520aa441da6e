package handlers

import "net/http"

const serviceName = "Stazy Search Service"

// ItemCounter reports how many catalog items are loaded.
type ItemCounter interface {
	Len() int
}

// Health returns the liveness payload served on / and /health.
func Health(items ItemCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := 0
		if items != nil {
			n = items.Len()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "online",
			"service":       serviceName,
			"catalog_items": n,
		})
	}
}
