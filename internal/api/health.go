package api

import "net/http"

// health is a simple health check endpoint for container probes.
// Returns 200 OK with {"status":"ok"}, independent of bot state: it must
// respond even when the AI backend is unavailable.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
