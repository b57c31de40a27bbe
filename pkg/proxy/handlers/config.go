package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"kurp-hq/kurp/pkg/config"
	"kurp-hq/kurp/pkg/proxy"
	"kurp-hq/kurp/pkg/proxy/types"
)

// ConfigHandler exposes the configuration document over HTTP. It is only
// mounted when allow_config_updates is set.
type ConfigHandler struct {
	Store *config.Store
}

// NewConfigHandler creates a config handler backed by store.
func NewConfigHandler(store *config.Store) *ConfigHandler {
	return &ConfigHandler{Store: store}
}

// Get writes the latest configuration as JSON.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeConfig(w, r, h.Store.Latest())
}

// Update merges a JSON document into the latest configuration, persists it
// and schedules a reload. The response is sent before the server restarts.
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	latest := h.Store.Latest()

	// An earlier update may have turned updates off; it takes effect
	// before the reload does.
	if !latest.AllowConfigUpdates {
		writeError(w, r, &proxy.RequestError{
			Message: "configuration updates are disabled",
			Code:    types.CodeUpdatesDisabled,
			Type:    types.ErrorTypePermissionDenied,
		})
		return
	}

	body, err := proxy.ReadBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	next, err := config.MergeJSONDocument(latest, body, h.Store.Dir())
	if err != nil {
		writeError(w, r, &proxy.RequestError{Message: err.Error(), Code: types.CodeInvalidJSON})
		return
	}

	if err := h.Store.Update(next); err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			writeError(w, r, &proxy.RequestError{Message: verr.Error(), Code: types.CodeInvalidConfig})
			return
		}
		writeError(w, r, err)
		return
	}

	slog.InfoContext(ctx, "configuration updated over http, reloading")
	h.writeConfig(w, r, h.Store.Latest())
}

func (h *ConfigHandler) writeConfig(w http.ResponseWriter, r *http.Request, cfg *config.Config) {
	doc, err := config.MarshalJSONDocument(cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
