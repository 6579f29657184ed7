package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/paperdrum/internal/pads"
	"github.com/ayusman/paperdrum/internal/plugin"
	"github.com/ayusman/paperdrum/internal/store"
)

// ActionHandler handles HTTP requests for pad action bindings.
type ActionHandler struct {
	store   *store.Store
	plugins *plugin.Manager
}

// NewActionHandler creates a new ActionHandler with the given store. When
// plugins is non-nil, bindings must name a discovered plugin and one of its
// actions.
func NewActionHandler(s *store.Store, plugins *plugin.Manager) *ActionHandler {
	return &ActionHandler{store: s, plugins: plugins}
}

// ServeHTTP routes /api/actions and /api/actions/{id}.
func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/actions"), "/")

	switch {
	case id == "" && r.Method == http.MethodGet:
		h.list(w)
	case id == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case id != "" && r.Method == http.MethodGet:
		h.get(w, id)
	case id != "" && r.Method == http.MethodPut:
		h.update(w, r, id)
	case id != "" && r.Method == http.MethodDelete:
		h.delete(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// actionRequest is the body of POST and PUT. On PUT, empty fields keep
// their stored value.
type actionRequest struct {
	Pad        string          `json:"pad"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type actionResponse struct {
	ID         string          `json:"id"`
	Pad        string          `json:"pad"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listActionsResponse struct {
	Actions []actionResponse `json:"actions"`
}

func toActionResponse(a *store.Action) actionResponse {
	config := a.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return actionResponse{
		ID:         a.ID,
		Pad:        a.Pad,
		PluginName: a.PluginName,
		ActionName: a.ActionName,
		Config:     config,
		Enabled:    a.Enabled,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}

func (h *ActionHandler) list(w http.ResponseWriter) {
	actions, err := h.store.Actions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}

	resp := listActionsResponse{Actions: make([]actionResponse, 0, len(actions))}
	for _, a := range actions {
		resp.Actions = append(resp.Actions, toActionResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ActionHandler) get(w http.ResponseWriter, id string) {
	action, err := h.store.Actions().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Failed to get action")
		return
	}
	writeJSON(w, http.StatusOK, toActionResponse(action))
}

// create handles POST /api/actions. New bindings start enabled.
func (h *ActionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	required := []struct{ field, value string }{
		{"pad", req.Pad},
		{"plugin_name", req.PluginName},
		{"action_name", req.ActionName},
	}
	for _, f := range required {
		if f.value == "" {
			writeError(w, http.StatusBadRequest, f.field+" is required")
			return
		}
	}

	action := &store.Action{
		ID:         uuid.New().String(),
		Pad:        req.Pad,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    req.Enabled == nil || *req.Enabled,
	}
	if msg := h.validate(action); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if action.Config == nil {
		action.Config = json.RawMessage("{}")
	}

	if err := h.store.Actions().Create(action); err != nil {
		writeStoreError(w, err, "Failed to create action")
		return
	}
	writeJSON(w, http.StatusCreated, toActionResponse(action))
}

// update handles PUT /api/actions/{id}.
func (h *ActionHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	action, err := h.store.Actions().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Failed to get action")
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Pad != "" {
		action.Pad = req.Pad
	}
	if req.PluginName != "" {
		action.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		action.ActionName = req.ActionName
	}
	if req.Config != nil {
		action.Config = req.Config
	}
	if req.Enabled != nil {
		action.Enabled = *req.Enabled
	}
	if msg := h.validate(action); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Actions().Update(action); err != nil {
		writeStoreError(w, err, "Failed to update action")
		return
	}
	writeJSON(w, http.StatusOK, toActionResponse(action))
}

func (h *ActionHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Actions().Delete(id); err != nil {
		writeStoreError(w, err, "Failed to delete action")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validate checks a binding against the pad layout and discovered plugins.
// It returns an empty string when the binding is acceptable.
func (h *ActionHandler) validate(a *store.Action) string {
	if !pads.Valid(a.Pad) {
		return "Unknown pad"
	}
	if h.plugins == nil {
		return ""
	}
	p, err := h.plugins.Get(a.PluginName)
	if err != nil {
		return "Plugin not found"
	}
	if !p.Manifest.HasAction(a.ActionName) {
		return "Plugin does not provide this action"
	}
	return ""
}

// writeStoreError maps repository errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Action not found")
	case errors.Is(err, store.ErrPadBound):
		writeError(w, http.StatusConflict, "Action already bound to this pad")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
