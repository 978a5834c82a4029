// Package handler exposes the statement pipeline over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-ocr/internal/export"
	"github.com/FACorreiaa/statement-ocr/internal/statement/repository"
	"github.com/FACorreiaa/statement-ocr/internal/statement/service"
)

// maxUploadBytes caps statement uploads at 32 MiB.
const maxUploadBytes = 32 << 20

// StatementHandler handles the statement HTTP routes.
type StatementHandler struct {
	svc    *service.StatementService
	logger *slog.Logger
}

// NewStatementHandler creates a new statement handler.
func NewStatementHandler(svc *service.StatementService, logger *slog.Logger) *StatementHandler {
	return &StatementHandler{svc: svc, logger: logger}
}

// Routes mounts the statement endpoints.
func (h *StatementHandler) Routes(r chi.Router) {
	r.Post("/statements", h.Upload)
	r.Post("/statements/process", h.Process)
	r.Get("/statements/{id}", h.Get)
	r.Get("/statements/{id}/transactions.csv", h.ExportCSV)
}

type statementResponse struct {
	ID           string `json:"id"`
	FileName     string `json:"file_name"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	BankName     string `json:"bank_name,omitempty"`
	PeriodStart  string `json:"period_start,omitempty"`
	PeriodEnd    string `json:"period_end,omitempty"`
	TotalBalance string `json:"total_balance,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toResponse(rec *repository.StatementRecord) statementResponse {
	resp := statementResponse{
		ID:           rec.ID.String(),
		FileName:     rec.FileName,
		Status:       string(rec.Status),
		ErrorMessage: rec.ErrorMessage,
		BankName:     rec.BankName,
		PeriodStart:  rec.PeriodStart,
		PeriodEnd:    rec.PeriodEnd,
		CreatedAt:    rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if rec.TotalBalance != nil {
		resp.TotalBalance = rec.TotalBalance.StringFixed(2)
	}
	return resp
}

// Upload accepts a multipart statement upload and kicks off processing.
func (h *StatementHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	rec, err := h.svc.UploadStatement(r.Context(), header.Filename, contentType, file)
	if err != nil {
		h.logger.Error("statement upload failed", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	h.respondJSON(w, http.StatusAccepted, toResponse(rec))
}

type processRequest struct {
	Source      string `json:"source"`
	BearerToken string `json:"bearer_token,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

// Process runs the pipeline synchronously against a local path or HTTP(S)
// URL, without persisting anything. With ?format=csv the parsed transactions
// stream back as CSV instead of the full result.
func (h *StatementHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		h.respondError(w, http.StatusBadRequest, "missing source")
		return
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	data, err := h.svc.ProcessSource(r.Context(), req.Source, req.BearerToken, mimeType)
	if err != nil {
		h.logger.Error("synchronous processing failed", slog.Any("error", err))
		h.respondError(w, http.StatusBadRequest, "failed to resolve source document")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
		if err := export.WriteTransactions(w, data); err != nil {
			h.logger.Error("failed to write CSV export", slog.Any("error", err))
		}
		return
	}

	h.respondJSON(w, http.StatusOK, data)
}

// Get returns one statement's processing state and summary.
func (h *StatementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	rec, err := h.svc.GetStatement(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "statement not found")
			return
		}
		h.logger.Error("failed to load statement", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "failed to load statement")
		return
	}

	h.respondJSON(w, http.StatusOK, toResponse(rec))
}

// ExportCSV streams a statement's parsed transactions as CSV.
func (h *StatementHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	records, err := h.svc.ListTransactions(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list transactions", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.csv"`, id))
	if err := export.WriteTransactionRecords(w, records); err != nil {
		h.logger.Error("failed to write CSV export", slog.Any("error", err))
	}
}

func (h *StatementHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid statement id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *StatementHandler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *StatementHandler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, map[string]string{"error": msg})
}
