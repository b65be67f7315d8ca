package handlers

import "net/http"

// Health reports that the process is up. It does not touch the store.
func Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
