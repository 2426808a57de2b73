package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/AlexStarov/qrlabel-GoLang-lib/labeler"
	"github.com/AlexStarov/qrlabel-GoLang-lib/layout"
	"github.com/AlexStarov/qrlabel-GoLang-lib/printer"
	"github.com/AlexStarov/qrlabel-GoLang-lib/qr"
	"github.com/AlexStarov/qrlabel-GoLang-lib/render"
)

// SuccessEnvelope wraps successful JSON responses.
type SuccessEnvelope struct {
	Data interface{} `json:"data"`
}

// ErrorEnvelope wraps error responses.
type ErrorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, SuccessEnvelope{Data: data})
}

func writeBytes(w http.ResponseWriter, contentType string, b []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// errorStatus maps pipeline errors to an HTTP status and an error code.
func errorStatus(err error) (int, string) {
	var te *printer.TransportError
	switch {
	case errors.Is(err, render.ErrRenderTimeout):
		return http.StatusGatewayTimeout, render.ErrCodeRenderTimeout
	case errors.As(err, &te):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "PRINTER_TIMEOUT"
		}
		return http.StatusBadGateway, "TRANSPORT_ERROR"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, printer.ErrUnknownLabelCode):
		return http.StatusBadRequest, "UNKNOWN_LABEL_CODE"
	case errors.Is(err, printer.ErrUnsupportedPrinterModel):
		return http.StatusBadRequest, "UNSUPPORTED_PRINTER_MODEL"
	case errors.Is(err, printer.ErrUnsupportedBackend):
		return http.StatusBadRequest, "UNSUPPORTED_BACKEND"
	case errors.Is(err, printer.ErrBitmapSize):
		return http.StatusUnprocessableEntity, "BITMAP_SIZE"
	case errors.Is(err, printer.ErrUnknownPrinter):
		return http.StatusNotFound, "UNKNOWN_PRINTER"
	case errors.Is(err, layout.ErrUnknownObjectType), errors.Is(err, layout.ErrUnknownDesign):
		return http.StatusNotFound, "UNKNOWN_DESIGN"
	case errors.Is(err, qr.ErrPayloadTooLarge):
		return http.StatusUnprocessableEntity, "PAYLOAD_TOO_LARGE"
	case errors.Is(err, layout.ErrLayoutOverflow):
		return http.StatusUnprocessableEntity, "LAYOUT_OVERFLOW"
	case errors.Is(err, layout.ErrNoURL), errors.Is(err, qr.ErrEmptyPayload):
		return http.StatusUnprocessableEntity, "NO_PAYLOAD"
	case errors.Is(err, labeler.ErrNoRenderer):
		return http.StatusNotImplemented, "NO_RENDERER"
	case errors.Is(err, labeler.ErrInvalidRequest), errors.Is(err, qr.ErrInvalidOptions):
		return http.StatusBadRequest, "INVALID_REQUEST"
	}
	var re *render.RenderError
	if errors.As(err, &re) {
		if re.Code == render.ErrCodeInvalidMarkup {
			return http.StatusBadRequest, re.Code
		}
		return http.StatusBadGateway, re.Code
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("code", code),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeJSON(w, status, ErrorEnvelope{Error: msg, Code: code})
}
