package server

import (
	"encoding/json"
	"net/http"

	"dartsight/internal/jobs"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// passThrough relays an upstream response with its original status code.
// Error bodies that are not valid JSON get wrapped so the client always
// receives a JSON document.
func passThrough(w http.ResponseWriter, resp *jobs.UpstreamResponse) {
	w.Header().Set("Content-Type", "application/json")

	if json.Valid(resp.Body) {
		w.WriteHeader(resp.Status)
		_, _ = w.Write(resp.Body)
		return
	}

	w.WriteHeader(resp.Status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": string(resp.Body)})
}
