// Package server exposes the label pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/AlexStarov/qrlabel-GoLang-lib/config"
	"github.com/AlexStarov/qrlabel-GoLang-lib/label"
	"github.com/AlexStarov/qrlabel-GoLang-lib/labeler"
	"github.com/AlexStarov/qrlabel-GoLang-lib/layout"
	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
)

const maxBodyBytes = 1 << 20

// Options configure the HTTP server.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

// Server wraps the chi router and the http.Server.
type Server struct {
	svc        *labeler.Service
	router     *chi.Mux
	httpServer *http.Server
	logger     *zap.Logger
}

// New builds the router for svc.
func New(svc *labeler.Service, opts Options) *Server {
	s := &Server{
		svc:    svc,
		router: chi.NewRouter(),
		logger: logInternal.Or(opts.Logger).Named("http"),
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		ok(w, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/labels", s.listLabels)
		r.Get("/printers", s.listPrinters)
		r.Get("/layouts", s.listLayouts)
		r.Post("/labels/print", s.handle(labeler.ModePrint))
		r.Post("/labels/preview.png", s.handle(labeler.ModePreviewRaster))
		r.Post("/labels/preview.pdf", s.handle(labeler.ModePreviewVector))
	})

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("duration", time.Since(start)))
	})
}

// labelRequest is the JSON body of the label endpoints.
type labelRequest struct {
	ObjectType string         `json:"object_type"`
	Attributes map[string]any `json:"attributes"`
	DesignNo   int            `json:"design_no,omitempty"`
	LabelCode  string         `json:"label_code,omitempty"`
	Printer    string         `json:"printer,omitempty"`
	Markup     string         `json:"markup,omitempty"`
	Timeout    string         `json:"timeout,omitempty"`
	// Layout overrides keys of the design, as in the configuration file.
	Layout map[string]any `json:"layout,omitempty"`
}

type printResponse struct {
	LabelCode string `json:"label_code"`
	Printer   string `json:"printer"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

func (s *Server) handle(mode labeler.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body labelRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			s.fail(w, r, fmt.Errorf("%w: %w", labeler.ErrInvalidRequest, err))
			return
		}
		req := labeler.Request{
			ObjectType: body.ObjectType,
			Attributes: body.Attributes,
			DesignNo:   body.DesignNo,
			LabelCode:  body.LabelCode,
			PrinterKey: body.Printer,
			Markup:     body.Markup,
			Mode:       mode,
		}
		if body.Timeout != "" {
			d, err := time.ParseDuration(body.Timeout)
			if err != nil || d < 0 {
				s.fail(w, r, fmt.Errorf("%w: timeout %q", labeler.ErrInvalidRequest, body.Timeout))
				return
			}
			req.Timeout = d
		}
		if body.Layout != nil {
			cfg, err := s.layout(body)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			req.Layout = &cfg
		}

		res, err := s.svc.Handle(r.Context(), req)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		switch mode {
		case labeler.ModePreviewRaster:
			writeBytes(w, "image/png", res.PNG)
		case labeler.ModePreviewVector:
			writeBytes(w, "application/pdf", res.PDF)
		default:
			ok(w, printResponse{
				LabelCode: res.LabelCode,
				Printer:   res.Printer,
				Width:     res.Width,
				Height:    res.Height,
			})
		}
	}
}

// layout applies the body's layout keys to the object's design, or to the
// stock design when the body names no object type.
func (s *Server) layout(body labelRequest) (layout.Config, error) {
	base := layout.DefaultConfig()
	if body.ObjectType != "" {
		no := body.DesignNo
		if no == 0 {
			no = 1
		}
		var err error
		if base, err = s.svc.Layouts().Get(body.ObjectType, no); err != nil {
			return layout.Config{}, err
		}
	}
	cfg, err := config.ApplyLayout(base, body.Layout)
	if err != nil {
		return layout.Config{}, fmt.Errorf("%w: layout: %w", labeler.ErrInvalidRequest, err)
	}
	return cfg, nil
}

type labelInfo struct {
	Code     string `json:"code"`
	Kind     string `json:"kind"`
	Round    bool   `json:"round,omitempty"`
	WidthMM  int    `json:"width_mm"`
	LengthMM int    `json:"length_mm,omitempty"`
	WidthPx  int    `json:"width_px"`
	HeightPx int    `json:"height_px,omitempty"`
}

func (s *Server) listLabels(w http.ResponseWriter, _ *http.Request) {
	specs := label.All()
	out := make([]labelInfo, 0, len(specs))
	for _, sp := range specs {
		out = append(out, labelInfo{
			Code:     sp.Code,
			Kind:     sp.Kind.String(),
			Round:    sp.Round,
			WidthMM:  sp.WidthMM,
			LengthMM: sp.LengthMM,
			WidthPx:  sp.WidthPx,
			HeightPx: sp.HeightPx,
		})
	}
	ok(w, out)
}

type printerInfo struct {
	Name    string `json:"name"`
	Backend string `json:"backend"`
	Model   string `json:"model"`
	Default bool   `json:"default,omitempty"`
}

func (s *Server) listPrinters(w http.ResponseWriter, _ *http.Request) {
	reg := s.svc.Registry()
	out := make([]printerInfo, 0, len(reg.Printers))
	for _, name := range reg.Names() {
		p := reg.Printers[name]
		out = append(out, printerInfo{
			Name:    name,
			Backend: p.Backend,
			Model:   p.Model,
			Default: name == reg.DefaultPrinter,
		})
	}
	ok(w, out)
}

type designInfo struct {
	ObjectType string `json:"object_type"`
	DesignNo   int    `json:"design_no"`
	Placement  string `json:"placement"`
	Width      string `json:"width"`
	Height     string `json:"height"`
}

func (s *Server) listLayouts(w http.ResponseWriter, _ *http.Request) {
	set := s.svc.Layouts()
	var out []designInfo
	for _, t := range set.ObjectTypes() {
		for _, d := range set.Designs(t) {
			out = append(out, designInfo{
				ObjectType: d.ObjectType,
				DesignNo:   d.No,
				Placement:  string(d.Config.Placement),
				Width:      d.Config.LabelWidth.String(),
				Height:     d.Config.LabelHeight.String(),
			})
		}
	}
	ok(w, out)
}
