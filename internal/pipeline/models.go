package pipeline

import (
	"encoding/json"
	"net/http"
)

// modelInfo is one entry in the OpenAI-compatible GET /v1/models list.
type modelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type modelsResponse struct {
	Object string      `json:"object"`
	Data   []modelInfo `json:"data"`
}

// ModelsHandler serves GET /v1/models. The proxy doesn't host models
// itself, so it advertises a fixed placeholder catalog — callers that
// need the upstream's real catalog should query it directly; this
// endpoint exists only so OpenAI-compatible clients that probe it
// before their first completion request don't fail outright.
func ModelsHandler(w http.ResponseWriter, _ *http.Request) {
	resp := modelsResponse{
		Object: "list",
		Data: []modelInfo{
			{ID: "gpt-4", Object: "model", OwnedBy: "proxy"},
			{ID: "gpt-3.5-turbo", Object: "model", OwnedBy: "proxy"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
