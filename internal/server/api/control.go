package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/paperdrum/internal/app"
	"github.com/ayusman/paperdrum/internal/calibration"
	"github.com/ayusman/paperdrum/internal/geometry"
	"github.com/ayusman/paperdrum/internal/log"
	"github.com/ayusman/paperdrum/internal/pads"
	"github.com/ayusman/paperdrum/internal/render"
)

// CalibrateTimeout bounds how long a calibrate request waits for the frame loop.
const CalibrateTimeout = 10 * time.Second

// Controller is the part of the running pipeline the API drives.
type Controller interface {
	Status() app.Status
	Calibrate(ctx context.Context) (*calibration.Calibration, error)
	SetMirrored(ctx context.Context, mirrored bool) error
	Mirrored() bool
}

// ControlHandler serves pipeline status and control endpoints.
type ControlHandler struct {
	ctl    Controller
	hub    *render.Hub
	sheetW float64
	sheetH float64
}

// NewControlHandler creates a ControlHandler. hub may be nil when no
// preview is available.
func NewControlHandler(ctl Controller, hub *render.Hub, sheetW, sheetH float64) *ControlHandler {
	return &ControlHandler{ctl: ctl, hub: hub, sheetW: sheetW, sheetH: sheetH}
}

// Register adds the control routes to mux.
func (h *ControlHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.status)
	mux.HandleFunc("/api/calibrate", h.calibrate)
	mux.HandleFunc("/api/mirror", h.mirror)
	mux.HandleFunc("/api/pads", h.pads)
	mux.HandleFunc("/api/snapshot", h.snapshot)
}

type calibrateResponse struct {
	Calibrated bool             `json:"calibrated"`
	Corners    []geometry.Point `json:"corners"`
	RMS        float64          `json:"rms"`
}

type mirrorRequest struct {
	Mirrored *bool `json:"mirrored"`
}

type mirrorResponse struct {
	Mirrored bool `json:"mirrored"`
}

type padsResponse struct {
	SheetW float64    `json:"sheet_w"`
	SheetH float64    `json:"sheet_h"`
	Pads   []pads.Pad `json:"pads"`
}

// status handles GET /api/status.
func (h *ControlHandler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.ctl.Status())
}

// calibrate handles POST /api/calibrate.
func (h *ControlHandler) calibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), CalibrateTimeout)
	defer cancel()

	cal, err := h.ctl.Calibrate(ctx)
	if err != nil {
		writeError(w, calibrateStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, calibrateResponse{
		Calibrated: true,
		Corners:    cal.Corners[:],
		RMS:        cal.RMS,
	})
}

// calibrateStatus maps a calibration error to an HTTP status.
func calibrateStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrNotRunning), errors.Is(err, app.ErrNoFrame):
		return http.StatusConflict
	case errors.Is(err, calibration.ErrInsufficientFiducials),
		errors.Is(err, calibration.ErrNoSpreadSubset),
		errors.Is(err, calibration.ErrReprojectionRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		log.Error("calibration failed", "error", err)
		return http.StatusInternalServerError
	}
}

// mirror handles GET and PUT /api/mirror.
func (h *ControlHandler) mirror(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, mirrorResponse{Mirrored: h.ctl.Mirrored()})
	case http.MethodPut:
		var req mirrorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Mirrored == nil {
			writeError(w, http.StatusBadRequest, "mirrored is required")
			return
		}
		if err := h.ctl.SetMirrored(r.Context(), *req.Mirrored); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to set mirroring")
			return
		}
		writeJSON(w, http.StatusOK, mirrorResponse{Mirrored: *req.Mirrored})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// pads handles GET /api/pads and returns the layout in sheet coordinates.
func (h *ControlHandler) pads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, padsResponse{
		SheetW: h.sheetW,
		SheetH: h.sheetH,
		Pads:   pads.Layout(h.sheetW, h.sheetH),
	})
}

// snapshot handles GET /api/snapshot and returns the latest camera frame
// as PNG, flipped when mirroring is on.
func (h *ControlHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "No frame available")
		return
	}

	png, err := render.SnapshotPNG(h.hub.Raw(), h.ctl.Mirrored())
	if errors.Is(err, render.ErrNoFrame) {
		writeError(w, http.StatusServiceUnavailable, "No frame available")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode snapshot")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}
