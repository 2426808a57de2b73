package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/AlexStarov/qrlabel-GoLang-lib/config"
	"github.com/AlexStarov/qrlabel-GoLang-lib/label"
	"github.com/AlexStarov/qrlabel-GoLang-lib/labeler"
	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
	"github.com/AlexStarov/qrlabel-GoLang-lib/printer"
	"github.com/AlexStarov/qrlabel-GoLang-lib/render"
	"github.com/AlexStarov/qrlabel-GoLang-lib/server"
)

const usage = `usage: qrlabel <command> [flags]

commands:
  print    compose a label and send it to a printer
  preview  compose a label and write it as PNG or PDF
  serve    run the HTTP API
  labels   list label sizes
  models   list printer models
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "print":
		err = runLabel(args, labeler.ModePrint)
	case "preview":
		err = runLabel(args, "")
	case "serve":
		err = runServe(args)
	case "labels":
		err = listLabels(os.Stdout)
	case "models":
		err = listModels(os.Stdout)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "qrlabel:", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the label service.
func setup(path string) (*config.Config, *labeler.Service, func(), error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logInternal.Init(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}

	ropts := cfg.Renderer
	ropts.Logger = logger
	renderer, err := render.New(ropts)
	if err != nil {
		logger.Warn("markup rendering disabled", zap.Error(err))
		renderer = nil
	}

	svc := labeler.New(labeler.Options{
		Registry: cfg.Registry,
		Layouts:  cfg.Layouts,
		Renderer: renderer,
		Dispatcher: printer.NewDispatcher(printer.DispatcherOptions{
			DialTimeout:  cfg.Print.DialTimeout,
			WriteTimeout: cfg.Print.WriteTimeout,
			Cut:          cfg.Print.Cut,
			Logger:       logger,
		}),
		RenderTimeout: cfg.Renderer.Timeout,
		Logger:        logger,
	})
	cleanup := func() {
		if renderer != nil {
			_ = renderer.Close()
		}
		_ = logger.Sync()
	}
	return cfg, svc, cleanup, nil
}

func runLabel(args []string, mode labeler.Mode) error {
	name := "print"
	if mode == "" {
		name = "preview"
	}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "configuration file")
	objectType := fs.StringP("type", "t", "device", "object type")
	design := fs.IntP("design", "d", 1, "design number")
	attrs := fs.StringArrayP("attr", "a", nil, "object attribute key=value, repeatable")
	attrsJSON := fs.String("attrs-json", "", "object attributes as a JSON object, or @file")
	labelCode := fs.StringP("label", "l", "", "label size code")
	printerKey := fs.StringP("printer", "p", "", "printer name")
	markupFile := fs.String("markup", "", "HTML template file rendered instead of the built-in layout")
	timeout := fs.Duration("timeout", time.Minute, "request timeout")
	format := fs.StringP("format", "f", "png", "preview format: png or pdf")
	out := fs.StringP("out", "o", "", "preview output file, - for stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	attributes, err := parseAttributes(*attrs, *attrsJSON)
	if err != nil {
		return err
	}
	req := labeler.Request{
		ObjectType: *objectType,
		Attributes: attributes,
		DesignNo:   *design,
		LabelCode:  *labelCode,
		PrinterKey: *printerKey,
		Timeout:    *timeout,
		Mode:       mode,
	}
	if mode == "" {
		if req.Mode, err = labeler.ParseMode(*format); err != nil || req.Mode == labeler.ModePrint {
			return fmt.Errorf("invalid preview format %q", *format)
		}
	}
	if *markupFile != "" {
		b, err := os.ReadFile(*markupFile)
		if err != nil {
			return err
		}
		req.Markup = string(b)
	}

	_, svc, cleanup, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := svc.Handle(ctx, req)
	if err != nil {
		return err
	}

	switch req.Mode {
	case labeler.ModePrint:
		fmt.Printf("printed %s on %s\n", res.LabelCode, res.Printer)
		return nil
	case labeler.ModePreviewVector:
		return writeOutput(*out, "label.pdf", res.PDF)
	default:
		return writeOutput(*out, "label.png", res.PNG)
	}
}

// parseAttributes merges a JSON object with key=value pairs. Dotted keys
// build nested objects ("a_terminations.device=sw1").
func parseAttributes(pairs []string, raw string) (map[string]any, error) {
	attrs := map[string]any{}
	if raw != "" {
		data := []byte(raw)
		if strings.HasPrefix(raw, "@") {
			var err error
			if data, err = os.ReadFile(raw[1:]); err != nil {
				return nil, err
			}
		}
		if err := json.Unmarshal(data, &attrs); err != nil {
			return nil, fmt.Errorf("attributes: %w", err)
		}
	}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("attribute %q is not key=value", p)
		}
		m := attrs
		parts := strings.Split(key, ".")
		for _, part := range parts[:len(parts)-1] {
			next, ok := m[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				m[part] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = value
	}
	return attrs, nil
}

func writeOutput(path, fallback string, b []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(b)
		return err
	}
	if path == "" {
		path = fallback
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "wrote", path)
	return nil
}

func runServe(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "configuration file")
	addr := fs.String("addr", "", "listen address, overrides server.addr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, svc, cleanup, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer cleanup()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	srv := server.New(svc, server.Options{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       logInternal.L(),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logInternal.L().Info("shutting down")
	if err := srv.Shutdown(10 * time.Second); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func listLabels(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tKIND\tSIZE MM\tDOTS")
	for _, s := range label.All() {
		size := fmt.Sprintf("%d", s.WidthMM)
		dots := fmt.Sprintf("%d", s.WidthPx)
		if s.Kind == label.DieCut {
			size = fmt.Sprintf("%dx%d", s.WidthMM, s.LengthMM)
			dots = fmt.Sprintf("%dx%d", s.WidthPx, s.HeightPx)
		}
		kind := s.Kind.String()
		if s.Round {
			kind = "round " + kind
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Code, kind, size, dots)
	}
	return tw.Flush()
}

func listModels(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tPROTOCOL\tDOTS\tCUTTER\tCOMPRESSION")
	for _, m := range printer.Models() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%t\n", m.Name, m.Protocol, m.HeadDots, m.Cutting, m.Compression)
	}
	return tw.Flush()
}
