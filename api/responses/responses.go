package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/abhishekY2401/product-service/pkg/errors"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

// Envelope is the uniform response body. Exactly one of Products or Errors
// is set.
type Envelope struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Products any    `json:"products,omitempty"`
	Errors   string `json:"errors,omitempty"`
}

func WriteProducts(w http.ResponseWriter, status int, message string, products any) {
	WriteJSON(w, status, Envelope{Success: true, Message: message, Products: products})
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	detail := meta.PublicMessage
	switch typed.Code() {
	case pkgerrors.CodeInternal, pkgerrors.CodeDependency:
	default:
		if m := typed.Message(); m != "" {
			detail = m
		}
	}

	if logg != nil {
		fields := pkgerrors.Dump(err).Fields()
		if meta.DetailsAllowed {
			if d := typed.Details(); d != nil {
				fields["details"] = d
			}
		}

		ctx = logg.WithFields(ctx, fields)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	WriteJSON(w, meta.HTTPStatus, Envelope{
		Success: false,
		Message: meta.PublicMessage,
		Errors:  detail,
	})
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
