package httpx

import (
	"errors"
	"net/http"

	"github.com/ariefcatur/go-catalog-carts/internal/carts"
	"github.com/ariefcatur/go-catalog-carts/internal/catalog"
	"github.com/go-playground/validator/v10"
)

type errorResp struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Line      *int   `json:"line,omitempty"`
	Unit      string `json:"unit,omitempty"`
	ID        string `json:"id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
	Shortfall int    `json:"shortfall,omitempty"`
}

var cartStatus = map[carts.Kind]int{
	carts.KindInvalidQuantity:    http.StatusBadRequest,
	carts.KindResourceNotFound:   http.StatusNotFound,
	carts.KindUnitUnavailable:    http.StatusConflict,
	carts.KindInsufficientStock:  http.StatusConflict,
	carts.KindPersistenceFailure: http.StatusServiceUnavailable,
}

// statusFor maps a service error to its HTTP status and body.
func statusFor(err error) (int, errorResp) {
	var cerr *carts.Error
	if errors.As(err, &cerr) {
		body := errorResp{Error: string(cerr.Kind), Message: cerr.Error(), ID: cerr.ID}
		if cerr.Line >= 0 && cerr.Kind != carts.KindPersistenceFailure {
			line := cerr.Line
			body.Line = &line
		}
		if cerr.Unit.Valid() {
			body.Unit = cerr.Unit.String()
		}
		if cerr.Kind == carts.KindInsufficientStock {
			avail := cerr.Available
			body.Requested, body.Available, body.Shortfall = cerr.Requested, &avail, cerr.Shortfall()
		}
		if cerr.Kind == carts.KindPersistenceFailure {
			// storage details stay in the logs
			body.Message = "cart could not be stored, try again"
		}
		code, ok := cartStatus[cerr.Kind]
		if !ok {
			code = http.StatusInternalServerError
		}
		return code, body
	}

	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResp{Error: "INVALID_REQUEST", Message: verr.Error()}
	case errors.Is(err, catalog.ErrInvalidProduct):
		return http.StatusBadRequest, errorResp{Error: "INVALID_PRODUCT", Message: err.Error()}
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, carts.ErrCartNotFound):
		return http.StatusNotFound, errorResp{Error: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, catalog.ErrInvalidTransition):
		return http.StatusConflict, errorResp{Error: "INVALID_TRANSITION", Message: err.Error()}
	case errors.Is(err, catalog.ErrDuplicate):
		return http.StatusConflict, errorResp{Error: "DUPLICATE", Message: err.Error()}
	}
	return http.StatusInternalServerError, errorResp{Error: "INTERNAL", Message: "internal error"}
}

func writeError(w http.ResponseWriter, err error) {
	code, body := statusFor(err)
	writeJSON(w, code, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResp{Error: "INVALID_REQUEST", Message: msg})
}
