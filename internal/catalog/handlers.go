package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/pricing"
)

// Handler exposes the catalog endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type registerRequest struct {
	Barcode string `json:"barcode" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Price   string `json:"price" validate:"required"`
}

type modifyPriceRequest struct {
	Price           string `json:"price" validate:"required"`
	TempPrice       string `json:"tempPrice"`
	TempPriceExpiry string `json:"tempPriceExpiry"`
}

type productView struct {
	Barcode         string    `json:"barcode"`
	Name            string    `json:"name"`
	Price           string    `json:"price"`
	TempPrice       string    `json:"tempPrice,omitempty"`
	TempPriceExpiry string    `json:"tempPriceExpiry,omitempty"`
	EffectivePrice  string    `json:"effectivePrice"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Get handles GET /api/v1/products/{barcode}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	now := h.Svc.now()
	p, effective, err := h.Svc.Lookup(r.Context(), chi.URLParam(r, "barcode"), now)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewProduct(p, effective)})
}

// Register handles POST /api/v1/products.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	price, err := pricing.ParseAmount(req.Price)
	if err != nil {
		common.WriteError(w, common.ValidationError("price must be a non-negative amount", map[string]any{"price": req.Price}))
		return
	}
	p, err := h.Svc.Register(r.Context(), RegisterInput{
		Barcode: req.Barcode,
		Name:    req.Name,
		Price:   price,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": viewProduct(p, p.EffectivePrice(h.Svc.now()))})
}

// ModifyPrice handles PUT /api/v1/products/{barcode}/price.
func (h *Handler) ModifyPrice(w http.ResponseWriter, r *http.Request) {
	var req modifyPriceRequest
	if err := h.decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	price, err := pricing.ParseAmount(req.Price)
	if err != nil {
		common.WriteError(w, common.ValidationError("price must be a non-negative amount", map[string]any{"price": req.Price}))
		return
	}
	promo, err := parsePromo(req.TempPrice, req.TempPriceExpiry)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.Svc.ModifyPrice(r.Context(), chi.URLParam(r, "barcode"), ModifyPriceInput{
		Price: price,
		Promo: promo,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewProduct(p, p.EffectivePrice(h.Svc.now()))})
}

// parsePromo builds the promo pair from the wire fields. Both fields must be
// present together; a lone expiry or a lone temporary price is rejected here
// so the service only ever sees a complete pair.
func parsePromo(tempPrice, tempExpiry string) (*pricing.Promo, error) {
	if tempPrice == "" && tempExpiry == "" {
		return nil, nil
	}
	if tempPrice == "" || tempExpiry == "" {
		return nil, common.ValidationError("temporary price and expiry date must be set together", nil)
	}
	amount, err := pricing.ParseAmount(tempPrice)
	if err != nil {
		return nil, common.ValidationError("temporary price must be a non-negative amount", map[string]any{"tempPrice": tempPrice})
	}
	expiry, err := time.Parse("2006-01-02", tempExpiry)
	if err != nil {
		return nil, common.ValidationError("expiry date must be formatted as YYYY-MM-DD", map[string]any{"tempPriceExpiry": tempExpiry})
	}
	return &pricing.Promo{Price: amount, ExpiresAt: expiry}, nil
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

func writeError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not found", nil)
	case errors.Is(err, ErrExists):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "barcode already registered", nil)
	default:
		common.WriteError(w, err)
	}
}

func viewProduct(p Product, effective pricing.Money) productView {
	view := productView{
		Barcode:        p.Barcode,
		Name:           p.Name,
		Price:          pricing.FormatAmount(p.Price),
		EffectivePrice: pricing.FormatAmount(effective),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.Promo != nil {
		view.TempPrice = pricing.FormatAmount(p.Promo.Price)
		view.TempPriceExpiry = p.Promo.ExpiresAt.Format("2006-01-02")
	}
	return view
}
