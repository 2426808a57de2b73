// Package config loads the label service configuration from a file and
// QRLABEL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/AlexStarov/qrlabel-GoLang-lib/label"
	"github.com/AlexStarov/qrlabel-GoLang-lib/layout"
	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
	"github.com/AlexStarov/qrlabel-GoLang-lib/printer"
	"github.com/AlexStarov/qrlabel-GoLang-lib/qr"
	"github.com/AlexStarov/qrlabel-GoLang-lib/render"
)

// Config holds all application configuration
type Config struct {
	Log      logInternal.Config
	Registry printer.Registry
	Layouts  *layout.Set
	Renderer render.Options
	Server   ServerConfig
	Print    PrintConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PrintConfig holds printer connection settings
type PrintConfig struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Cut          bool
}

// Default printer, matching a Brother QL-710W on the local network.
const (
	defaultPrinterName    = "default"
	defaultPrinterBackend = "network"
	defaultPrinterAddress = "tcp://192.168.48.201:9100"
	defaultPrinterModel   = "QL-710W"
	defaultLabelSize      = "62x100"
)

// Load reads configuration from path, or from qrlabel.{toml,yaml,json} in
// the working directory or /etc/qrlabel when path is empty. Environment
// variables override file values: printers.default.address is read from
// QRLABEL_PRINTERS_DEFAULT_ADDRESS.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("qrlabel")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/qrlabel")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("QRLABEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Log: logInternal.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
			Dir:    v.GetString("log.dir"),
			Name:   v.GetString("log.name"),
		},
		Registry: printer.Registry{
			Printers:         loadPrinters(v),
			DefaultPrinter:   v.GetString("default_printer"),
			DefaultLabelSize: v.GetString("default_label_size"),
		},
		Renderer: render.Options{
			Engine:     v.GetString("renderer.engine"),
			Timeout:    v.GetDuration("renderer.timeout"),
			RemoteURL:  v.GetString("renderer.remote_url"),
			NoSandbox:  v.GetBool("renderer.no_sandbox"),
			BinaryPath: v.GetString("renderer.binary_path"),
			TempDir:    v.GetString("renderer.temp_dir"),
		},
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Print: PrintConfig{
			DialTimeout:  v.GetDuration("print.dial_timeout"),
			WriteTimeout: v.GetDuration("print.write_timeout"),
			Cut:          !v.IsSet("print.cut") || v.GetBool("print.cut"),
		},
	}

	layouts, err := loadLayouts(v)
	if err != nil {
		return nil, err
	}
	cfg.Layouts = layouts

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadPrinters(v *viper.Viper) map[string]printer.Config {
	printers := make(map[string]printer.Config)
	for name := range v.GetStringMap("printers") {
		key := "printers." + name + "."
		printers[name] = printer.Config{
			Backend: v.GetString(key + "backend"),
			Address: v.GetString(key + "address"),
			Model:   v.GetString(key + "model"),
		}
	}
	return printers
}

// loadLayouts starts from the stock designs. The [layout] table overrides
// the defaults of every design; [layouts.<key>] tables override one design
// or add a numbered one ("device_2").
func loadLayouts(v *viper.Viper) (*layout.Set, error) {
	base := layout.DefaultConfig()
	if err := applyLayout(v, "layout.", &base); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	stock := layout.DefaultSet()
	set := layout.NewSet()
	for _, objectType := range stock.ObjectTypes() {
		d, _ := stock.Get(objectType, 1)
		c := base
		c.TextFields = d.TextFields
		c.Placement = d.Placement
		set.Put(objectType, c)
	}

	keys := make([]string, 0)
	for key := range v.GetStringMap("layouts") {
		keys = append(keys, key)
	}
	// "device" sorts before "device_2", so numbered designs inherit overrides
	sort.Strings(keys)
	for _, key := range keys {
		objectType, no := layout.ParseKey(key)
		c := base
		if prev, err := set.Get(objectType, 1); err == nil {
			c.TextFields = prev.TextFields
			c.Placement = prev.Placement
		}
		if no > 1 {
			c.Placement = layout.PlaceFullWidth
		}
		if err := applyLayout(v, "layouts."+key+".", &c); err != nil {
			return nil, fmt.Errorf("layouts.%s: %w", key, err)
		}
		set.Put(key, c)
	}
	return set, nil
}

// ApplyLayout returns base with the layout keys of m applied, the same keys
// a [layouts.<type>] table takes. The result is validated.
func ApplyLayout(base layout.Config, m map[string]any) (layout.Config, error) {
	v := viper.New()
	if err := v.MergeConfigMap(map[string]any{"layout": m}); err != nil {
		return layout.Config{}, err
	}
	c := base
	if err := applyLayout(v, "layout.", &c); err != nil {
		return layout.Config{}, err
	}
	if err := c.Validate(); err != nil {
		return layout.Config{}, err
	}
	return c, nil
}

// applyLayout overrides the fields of c that are set under prefix.
func applyLayout(v *viper.Viper, prefix string, c *layout.Config) error {
	str := func(key string, dst *string) {
		if v.IsSet(prefix + key) {
			*dst = v.GetString(prefix + key)
		}
	}
	boolean := func(key string, dst *bool) {
		if v.IsSet(prefix + key) {
			*dst = v.GetBool(prefix + key)
		}
	}
	integer := func(key string, dst *int) {
		if v.IsSet(prefix + key) {
			*dst = v.GetInt(prefix + key)
		}
	}
	var err error
	length := func(key string, dst *layout.MM) {
		if err != nil || !v.IsSet(prefix+key) {
			return
		}
		var mm layout.MM
		if mm, err = layout.ParseLength(v.GetString(prefix + key)); err == nil {
			*dst = mm
		} else {
			err = fmt.Errorf("%s: %w", key, err)
		}
	}

	if v.IsSet(prefix + "text_fields") {
		c.TextFields = v.GetStringSlice(prefix + "text_fields")
	}
	str("text_template", &c.TextTemplate)
	str("custom_text", &c.CustomText)
	str("url_template", &c.URLTemplate)

	length("label_width", &c.LabelWidth)
	length("label_height", &c.LabelHeight)
	length("label_edge_top", &c.EdgeTop)
	length("label_edge_left", &c.EdgeLeft)
	length("label_edge_right", &c.EdgeRight)
	length("label_edge_bottom", &c.EdgeBottom)
	length("label_qr_width", &c.QRWidth)
	length("label_qr_height", &c.QRHeight)
	length("label_qr_text_distance", &c.QRTextDistance)
	length("font_size", &c.FontSize)
	if err != nil {
		return err
	}

	integer("qr_version", &c.QR.Version)
	integer("qr_box_size", &c.QR.BoxSize)
	integer("qr_border", &c.QR.Border)
	boolean("qr_strict", &c.QR.Strict)
	if v.IsSet(prefix + "qr_error_correction") {
		level, err := qr.ParseLevel(v.GetString(prefix + "qr_error_correction"))
		if err != nil {
			return err
		}
		c.QR.Level = level
	}

	var loc, alignH, alignV, place string
	str("text_location", &loc)
	str("text_align_horizontal", &alignH)
	str("text_align_vertical", &alignV)
	str("placement", &place)
	if loc != "" {
		c.TextLocation = layout.TextLocation(loc)
	}
	if alignH != "" {
		c.AlignH = layout.AlignH(alignH)
	}
	if alignV != "" {
		c.AlignV = layout.AlignV(alignV)
	}
	if place != "" {
		c.Placement = layout.Placement(place)
	}

	str("font", &c.Font)
	str("font_weight", &c.FontWeight)
	str("font_color", &c.FontColor)
	boolean("with_qr", &c.WithQR)
	boolean("with_text", &c.WithText)
	return nil
}

// applyDefaults sets default values for missing configuration
func applyDefaults(cfg *Config) {
	def := logInternal.DefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Format
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = def.Output
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = def.Dir
	}
	if cfg.Log.Name == "" {
		cfg.Log.Name = def.Name
	}

	if len(cfg.Registry.Printers) == 0 {
		cfg.Registry.Printers = map[string]printer.Config{
			defaultPrinterName: {
				Backend: defaultPrinterBackend,
				Address: defaultPrinterAddress,
				Model:   defaultPrinterModel,
			},
		}
	}
	if cfg.Registry.DefaultPrinter == "" {
		cfg.Registry.DefaultPrinter = defaultPrinterName
	}
	if cfg.Registry.DefaultLabelSize == "" {
		cfg.Registry.DefaultLabelSize = defaultLabelSize
	}

	if cfg.Renderer.Engine == "" {
		cfg.Renderer.Engine = "chromedp"
	}
	if cfg.Renderer.Timeout == 0 {
		cfg.Renderer.Timeout = 30 * time.Second
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Print.DialTimeout == 0 {
		cfg.Print.DialTimeout = 5 * time.Second
	}
	if cfg.Print.WriteTimeout == 0 {
		cfg.Print.WriteTimeout = 30 * time.Second
	}
}

// validate checks that required configuration is set
func (c *Config) validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	if _, err := label.Lookup(c.Registry.DefaultLabelSize); err != nil {
		return fmt.Errorf("default_label_size: %w", err)
	}
	switch strings.ToLower(c.Renderer.Engine) {
	case "chromedp", "chrome", "wkhtmltoimage":
	default:
		return fmt.Errorf("invalid renderer engine %q", c.Renderer.Engine)
	}
	return c.Layouts.Validate()
}
