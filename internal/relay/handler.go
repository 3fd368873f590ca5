// Package relay exposes the printer over HTTP so anything on the LAN
// can print without speaking Bluetooth.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matheusdanoite/phomemo-go/internal/config"
	"github.com/matheusdanoite/phomemo-go/internal/link"
	"github.com/matheusdanoite/phomemo-go/internal/printjob"
	"github.com/matheusdanoite/phomemo-go/internal/raster"
)

// maxUploadBytes caps print uploads. A full-width photo strip is well
// under a megabyte after encoding; 20 MiB leaves room for large PNGs.
const maxUploadBytes = 20 << 20

type handler struct {
	lnk      *link.Link
	executor *printjob.Executor
	settings *config.Store
	log      *slog.Logger
}

// NewHandler creates the HTTP API for one printer link.
func NewHandler(lnk *link.Link, executor *printjob.Executor, settings *config.Store, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &handler{lnk: lnk, executor: executor, settings: settings, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /print", h.handlePrint)
	mux.HandleFunc("POST /print/test", h.handlePrintTest)
	mux.HandleFunc("GET /status", h.handleStatus)
	mux.HandleFunc("GET /settings", h.handleGetSettings)
	mux.HandleFunc("PUT /settings", h.handlePutSettings)
	return mux
}

type statusResponse struct {
	State     string          `json:"state"`
	Printing  bool            `json:"printing"`
	Progress  *progressInfo   `json:"progress,omitempty"`
	Printer   *printerStatus  `json:"printer,omitempty"`
	Settings  config.Settings `json:"settings"`
	UpdatedAt string          `json:"updatedAt"`
}

type progressInfo struct {
	FramesSent  int `json:"framesSent"`
	FramesTotal int `json:"framesTotal"`
}

type printerStatus struct {
	LidOpen      bool   `json:"lidOpen"`
	PaperPresent bool   `json:"paperPresent"`
	Problem      string `json:"problem,omitempty"`
}

type printResponse struct {
	Frames int `json:"frames"`
	Rows   int `json:"rows"`
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		State:     h.lnk.State().String(),
		Printing:  h.executor.Printing(),
		Settings:  h.settings.Get(),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if resp.Printing {
		p := h.executor.Progress()
		resp.Progress = &progressInfo{FramesSent: p.FramesSent, FramesTotal: p.FramesTotal}
	}
	if st, known := h.lnk.Status(); known {
		resp.Printer = &printerStatus{
			LidOpen:      st.LidOpen,
			PaperPresent: st.PaperPresent,
			Problem:      st.Problem(),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handlePrint runs the whole pipeline for one uploaded image: decode,
// prepare, dither, chunk, transmit.
func (h *handler) handlePrint(w http.ResponseWriter, r *http.Request) {
	img, err := raster.DecodeImage(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		var de *raster.DecodeError
		if errors.As(err, &de) {
			http.Error(w, "unsupported or corrupt image", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.printImage(w, r, img)
}

// handlePrintTest prints the built-in calibration pattern, so a user
// can verify the setup without crafting an upload.
func (h *handler) handlePrintTest(w http.ResponseWriter, r *http.Request) {
	h.printImage(w, r, TestPattern())
}

func (h *handler) printImage(w http.ResponseWriter, r *http.Request, img image.Image) {
	s := h.settings.Get()
	q := r.URL.Query()

	algo := raster.ParseAlgorithm(queryStr(q, "algorithm", s.Algorithm))
	intensity := queryFloat(q, "intensity", s.Intensity)
	opts := raster.Options{
		Intensity: intensity,
		Mirror:    queryBool(q, "mirror", s.Mirror),
		Rotate:    queryBool(q, "rotate", s.Rotate),
	}
	feed := queryInt(q, "feed", s.FeedLines)

	pb, err := raster.Prepare(img, opts)
	if err != nil {
		h.log.Warn("render failed", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	job := printjob.NewJob(raster.Dither(pb, algo, intensity), feed)

	if err := h.executor.Submit(r.Context(), job); err != nil {
		switch {
		case errors.Is(err, printjob.ErrAlreadyPrinting):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, link.ErrUnavailable):
			http.Error(w, "printer not connected", http.StatusServiceUnavailable)
		case errors.Is(err, context.Canceled):
			// Client went away mid-job; nothing useful to write.
			h.log.Warn("print aborted by client disconnect")
		default:
			h.log.Error("print failed", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	rows := 0
	for _, f := range job.Frames {
		rows += f.Rows()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(printResponse{Frames: len(job.Frames), Rows: rows})
}

func (h *handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.settings.Get())
}

func (h *handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var s config.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	normalizeSettings(&s)
	if err := h.settings.Update(s); err != nil {
		h.log.Warn("settings save failed", "err", err)
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}

// normalizeSettings clamps stored values into their usable ranges
// instead of rejecting, so a sloppy client still gets a sane print.
func normalizeSettings(s *config.Settings) {
	s.Algorithm = raster.ParseAlgorithm(s.Algorithm).String()
	if s.Intensity < 0 {
		s.Intensity = 0
	} else if s.Intensity > 1 {
		s.Intensity = 1
	}
	if s.FeedLines < 0 {
		s.FeedLines = 0
	} else if s.FeedLines > 255 {
		s.FeedLines = 255
	}
}

func queryStr(q url.Values, key, fallback string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return fallback
}

func queryFloat(q url.Values, key string, fallback float64) float64 {
	if v := q.Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func queryInt(q url.Values, key string, fallback int) int {
	if v := q.Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func queryBool(q url.Values, key string, fallback bool) bool {
	if v := q.Get(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
