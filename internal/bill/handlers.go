package bill

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/pricing"
	"github.com/noah-isme/backend-kasir/internal/scan"
)

// Handler exposes billing session endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type scanRequest struct {
	Barcode   string `json:"barcode" validate:"required"`
	Symbology string `json:"symbology"`
}

type settleRequest struct {
	Payment string `json:"payment" validate:"required"`
}

type lineView struct {
	Barcode   string `json:"barcode"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Qty       int    `json:"qty"`
	Subtotal  string `json:"subtotal"`
}

type snapshotView struct {
	ID        string     `json:"id"`
	Lines     []lineView `json:"lines"`
	Total     string     `json:"total"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Create handles POST /api/v1/bills.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "bill service not configured", nil)
		return
	}
	snap, err := h.Svc.Open(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": viewSnapshot(snap)})
}

// Get handles GET /api/v1/bills/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewSnapshot(snap)})
}

// Scan handles POST /api/v1/bills/{id}/scans.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := h.decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Svc.Scan(r.Context(), chi.URLParam(r, "id"), scan.Event{
		Barcode:   req.Barcode,
		Symbology: req.Symbology,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	switch result.Outcome {
	case OutcomeNotFound:
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not found", map[string]any{"barcode": req.Barcode})
	case OutcomeDuplicate:
		common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"outcome": result.Outcome,
			"total":   pricing.FormatAmount(result.Total),
		}})
	default:
		common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"outcome": result.Outcome,
			"line":    viewLine(result.Line),
			"total":   pricing.FormatAmount(result.Total),
		}})
	}
}

// Settle handles POST /api/v1/bills/{id}/settle.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := h.decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	payment, err := pricing.ParseAmount(req.Payment)
	if err != nil {
		common.WriteError(w, common.ValidationError("payment must be a non-negative amount", map[string]any{"payment": req.Payment}))
		return
	}
	settlement, err := h.Svc.Settle(r.Context(), chi.URLParam(r, "id"), payment)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"total":        pricing.FormatAmount(settlement.Total),
		"payment":      pricing.FormatAmount(settlement.Payment),
		"change":       pricing.FormatAmount(settlement.Change),
		"insufficient": settlement.Insufficient,
	}})
}

// Close handles DELETE /api/v1/bills/{id}.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.ValidationError("invalid request body", nil)
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			return common.ValidationError("missing required fields", nil)
		}
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "billing session not found", nil)
		return
	}
	common.WriteError(w, err)
}

func viewLine(line Line) lineView {
	return lineView{
		Barcode:   line.Barcode,
		Name:      line.Name,
		UnitPrice: pricing.FormatAmount(line.UnitPrice),
		Qty:       line.Qty,
		Subtotal:  pricing.FormatAmount(line.Subtotal()),
	}
}

func viewSnapshot(snap Snapshot) snapshotView {
	lines := make([]lineView, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		lines = append(lines, viewLine(line))
	}
	return snapshotView{
		ID:        snap.ID,
		Lines:     lines,
		Total:     pricing.FormatAmount(snap.Total),
		CreatedAt: snap.CreatedAt,
		ExpiresAt: snap.ExpiresAt,
	}
}
