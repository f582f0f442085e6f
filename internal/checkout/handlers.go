package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/magiccart-api/internal/common"
)

// Handler exposes the validate-selection endpoint.
type Handler struct {
	validator *Validator
	validate  *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Validator *Validator
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{validator: cfg.Validator, validate: NewRequestValidator()}
}

// NewRequestValidator returns a validator that understands decimal amounts and
// reports fields by their JSON names.
func NewRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		switch d := field.Interface().(type) {
		case decimal.Decimal:
			return d.String()
		case decimal.NullDecimal:
			if !d.Valid {
				return ""
			}
			return d.Decimal.String()
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})
	_ = v.RegisterValidation("decimal_nonneg", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	return v
}

// ValidateSelection handles POST /api/v1/validate-selection.
func (h *Handler) ValidateSelection(w http.ResponseWriter, r *http.Request) {
	if h.validator == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err))
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		common.WriteError(w, validationError(err))
		return
	}
	result, err := h.validator.ValidateSelection(r.Context(), payload)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteData(w, result)
}

func validationError(err error) *common.AppError {
	appErr := common.NewAppError("BAD_REQUEST", "request validation failed", http.StatusBadRequest, err)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[strings.TrimPrefix(fe.Namespace(), "SelectionRequest.")] = fe.Tag()
		}
		appErr.Details = map[string]any{"fields": fields}
	}
	return appErr
}
