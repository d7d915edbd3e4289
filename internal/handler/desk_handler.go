package handler

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"strconv"

	"github.com/freeeve/orderdesk/internal/logger"
	"github.com/freeeve/orderdesk/internal/model"
	"github.com/freeeve/orderdesk/internal/service"
)

//go:embed static/index.html
var static embed.FS

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

var errUnknownAction = errors.New("unknown action")

type clickRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type chooseRequest struct {
	Region string `json:"region"`
}

type ordersRequest struct {
	Text string `json:"text"`
}

// actionResponse carries the desk view alongside the error of a failed action.
type actionResponse struct {
	Error string         `json:"error"`
	View  model.DeskView `json:"view"`
}

// DeskHandler serves the order desk over HTTP.
type DeskHandler struct {
	desk *service.DeskService
}

// NewDeskHandler creates a DeskHandler.
func NewDeskHandler(desk *service.DeskService) *DeskHandler {
	return &DeskHandler{desk: desk}
}

// Register adds the desk routes to mux. Paths are absolute so the WebSocket
// route can share the mux.
func (h *DeskHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /api/v1/map.png", h.MapImage)
	mux.HandleFunc("GET /api/v1/desk", h.GetDesk)
	mux.HandleFunc("POST /api/v1/click", h.Click)
	mux.HandleFunc("POST /api/v1/choose", h.Choose)
	mux.HandleFunc("POST /api/v1/actions/{action}", h.Action)
	mux.HandleFunc("POST /api/v1/orders/{party}", h.EnterOrders)
	mux.HandleFunc("DELETE /api/v1/orders/{party}", h.ClearOrders)
	mux.HandleFunc("DELETE /api/v1/orders/{party}/{unit}", h.DeleteOrder)
	mux.HandleFunc("POST /api/v1/process", h.Process)
	mux.HandleFunc("POST /api/v1/reset", h.Reset)
	mux.HandleFunc("GET /api/v1/journal", h.Journal)
}

// Index handles GET / with the embedded desk page.
func (h *DeskHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

// MapImage handles GET /api/v1/map.png
func (h *DeskHandler) MapImage(w http.ResponseWriter, r *http.Request) {
	png, version, err := h.desk.Image(r.Context())
	if err != nil {
		logger.ForRequest(r.Context()).Error().Err(err).Msg("Failed to render map")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Render-Version", strconv.FormatUint(version, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// GetDesk handles GET /api/v1/desk
func (h *DeskHandler) GetDesk(w http.ResponseWriter, r *http.Request) {
	view, err := h.desk.View(r.Context())
	h.respond(w, r, view, err)
}

// Click handles POST /api/v1/click
func (h *DeskHandler) Click(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.desk.Click(r.Context(), req.X, req.Y)
	h.respond(w, r, view, err)
}

// Choose handles POST /api/v1/choose, the menu variant of a click.
func (h *DeskHandler) Choose(w http.ResponseWriter, r *http.Request) {
	var req chooseRequest
	if err := decodeJSON(r, &req); err != nil || req.Region == "" {
		writeError(w, http.StatusBadRequest, "region is required")
		return
	}
	view, err := h.desk.ChooseRegion(r.Context(), req.Region)
	h.respond(w, r, view, err)
}

// Action handles POST /api/v1/actions/{action}
func (h *DeskHandler) Action(w http.ResponseWriter, r *http.Request) {
	fn, ok := selectionActions(h.desk)[r.PathValue("action")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown action: "+r.PathValue("action"))
		return
	}
	view, err := fn(r.Context())
	h.respond(w, r, view, err)
}

// EnterOrders handles POST /api/v1/orders/{party}
func (h *DeskHandler) EnterOrders(w http.ResponseWriter, r *http.Request) {
	var req ordersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.desk.EnterOrders(r.Context(), r.PathValue("party"), req.Text)
	h.respond(w, r, view, err)
}

// ClearOrders handles DELETE /api/v1/orders/{party}
func (h *DeskHandler) ClearOrders(w http.ResponseWriter, r *http.Request) {
	view, err := h.desk.ClearOrders(r.Context(), r.PathValue("party"))
	h.respond(w, r, view, err)
}

// DeleteOrder handles DELETE /api/v1/orders/{party}/{unit}, where unit is
// an escaped identity such as "A%20PAR".
func (h *DeskHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.desk.DeleteOrder(r.Context(), r.PathValue("party"), r.PathValue("unit"))
	h.respond(w, r, view, err)
}

// Process handles POST /api/v1/process
func (h *DeskHandler) Process(w http.ResponseWriter, r *http.Request) {
	view, err := h.desk.Process(r.Context())
	h.respond(w, r, view, err)
}

// Reset handles POST /api/v1/reset
func (h *DeskHandler) Reset(w http.ResponseWriter, r *http.Request) {
	view, err := h.desk.Reset(r.Context())
	h.respond(w, r, view, err)
}

// Journal handles GET /api/v1/journal?limit=N
func (h *DeskHandler) Journal(w http.ResponseWriter, r *http.Request) {
	limit := defaultJournalLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxJournalLimit)
	}
	entries, err := h.desk.Journal(r.Context(), limit)
	if err != nil {
		logger.ForRequest(r.Context()).Error().Err(err).Msg("Failed to read journal")
		writeError(w, http.StatusBadGateway, "journal unavailable")
		return
	}
	if entries == nil {
		entries = []model.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *DeskHandler) respond(w http.ResponseWriter, r *http.Request, view model.DeskView, err error) {
	status := statusFor(err)
	if status == http.StatusOK {
		writeJSON(w, status, view)
		return
	}
	if status == http.StatusBadGateway {
		logger.ForRequest(r.Context()).Error().Err(err).Msg("Engine call failed")
	}
	writeJSON(w, status, actionResponse{Error: err.Error(), View: view})
}

// selectionActions returns the order-construction actions reachable by name.
func selectionActions(desk *service.DeskService) map[string]func(context.Context) (model.DeskView, error) {
	return map[string]func(context.Context) (model.DeskView, error){
		"hold":    desk.Hold,
		"move":    desk.BeginMove,
		"support": desk.BeginSupport,
		"convoy":  desk.BeginConvoy,
		"cancel":  desk.Cancel,
	}
}
