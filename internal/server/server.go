// Package server exposes the curation pipeline over HTTP: generation runs,
// the review workflow, and dataset exports.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/config"
	"github.com/sells-group/curation-cli/internal/export"
	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/internal/generate"
	"github.com/sells-group/curation-cli/internal/model"
	"github.com/sells-group/curation-cli/internal/review"
	"github.com/sells-group/curation-cli/internal/store"
)

// Server wires the pipeline services into an HTTP handler.
type Server struct {
	store     store.Store
	generator *generate.Generator
	reviews   *review.Service
	exporter  *export.Exporter
}

// New creates the HTTP handler with routing and CORS configured.
func New(st store.Store, gen *generate.Generator, rev *review.Service, exp *export.Exporter, cfg config.ServerConfig) http.Handler {
	s := &Server{store: st, generator: gen, reviews: rev, exporter: exp}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/datasets/{datasetID}", func(r chi.Router) {
		r.Get("/", s.handleGetDataset)
		r.Post("/generate", s.handleGenerate)
		r.Post("/export", s.handleExport)
	})
	r.Route("/review", func(r chi.Router) {
		r.Get("/pending", s.handleListPending)
		r.Post("/items/{itemID}/approve", s.handleApprove)
		r.Post("/items/{itemID}/reject", s.handleReject)
		r.Post("/items/{itemID}/edit", s.handleEdit)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.store.GetDataset(r.Context(), chi.URLParam(r, "datasetID"))
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SegmentIDs []string `json:"segment_ids,omitempty"`
		MaxItems   int      `json:"max_items,omitempty"`
		BatchSize  int      `json:"batch_size,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MaxItems < 0 {
		writeError(w, http.StatusBadRequest, "max_items must be at least 1 when set")
		return
	}

	res, err := s.generator.Run(r.Context(), generate.Request{
		DatasetID:  chi.URLParam(r, "datasetID"),
		SegmentIDs: req.SegmentIDs,
		MaxItems:   req.MaxItems,
		BatchSize:  req.BatchSize,
	})
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req := struct {
		ApprovedOnly *bool `json:"approved_only,omitempty"`
	}{}
	if !decodeBody(w, r, &req) {
		return
	}
	approvedOnly := true
	if req.ApprovedOnly != nil {
		approvedOnly = *req.ApprovedOnly
	}

	exp, err := s.exporter.Run(r.Context(), chi.URLParam(r, "datasetID"), export.Options{
		ApprovedOnly: approvedOnly,
	})
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	items, err := s.reviews.ListPending(r.Context(), r.URL.Query().Get("dataset_id"))
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

type reviewRequest struct {
	ReviewerID    string `json:"reviewer_id,omitempty"`
	Justification string `json:"justification,omitempty"`

	Instruction   *string `json:"instruction,omitempty"`
	InputText     *string `json:"input_text,omitempty"`
	IdealResponse *string `json:"ideal_response,omitempty"`
	BadResponse   *string `json:"bad_response,omitempty"`
	Explanation   *string `json:"explanation,omitempty"`
}

// reviewResponse pairs the updated item with the audit record the action
// produced.
type reviewResponse struct {
	Item   *model.DatasetItem   `json:"item"`
	Review *model.DatasetReview `json:"review"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, rev, err := s.reviews.Approve(r.Context(), chi.URLParam(r, "itemID"), req.ReviewerID, req.Justification)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{Item: item, Review: rev})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, rev, err := s.reviews.Reject(r.Context(), chi.URLParam(r, "itemID"), req.ReviewerID, req.Justification)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{Item: item, Review: rev})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, rev, err := s.reviews.Edit(r.Context(), chi.URLParam(r, "itemID"), req.ReviewerID, req.Justification, review.FieldUpdates{
		Instruction:   req.Instruction,
		InputText:     req.InputText,
		IdealResponse: req.IdealResponse,
		BadResponse:   req.BadResponse,
		Explanation:   req.Explanation,
	})
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{Item: item, Review: rev})
}

// decodeBody parses an optional JSON body. An empty body decodes to the
// zero request; malformed JSON is a 400.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeFault maps the error taxonomy onto HTTP statuses.
func writeFault(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch fault.KindOf(err) {
	case fault.KindNotFound:
		status = http.StatusNotFound
	case fault.KindInvalid:
		status = http.StatusBadRequest
	case fault.KindProcessing:
		status = http.StatusUnprocessableEntity
	case fault.KindExternal:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}
