package runner

import (
	"fmt"
	"time"

	"github.com/cbzforge/cbzforge/internal/extractors/cbr"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// RAR engine selectors.
const (
	RarEngineUnrar   = "unrar"
	RarEngineLibrary = "library"
)

// Options configures a conversion run. The zero value is not usable; start
// from DefaultOptions.
type Options struct {
	// Workers is the number of books processed concurrently.
	Workers int `yaml:"workers" validate:"min=1,max=64"`

	// PadWidth is the minimum zero-pad width for page names.
	PadWidth int `yaml:"pad_width" validate:"min=3,max=8"`

	// Strict fails a whole file when any page cannot be recovered. The
	// default is lenient: keep the recovered subset, flag the book partial.
	Strict bool `yaml:"strict"`

	RarEngine   string `yaml:"rar_engine" validate:"oneof=unrar library"`
	UnrarBinary string `yaml:"unrar_binary"`

	// ToolTimeout bounds one external tool invocation, as a Go duration
	// string. Empty means the built-in default.
	ToolTimeout string `yaml:"tool_timeout"`

	Compression string `yaml:"compression" validate:"oneof=store deflate"`

	// Upload mirrors finished archives to object storage when set.
	Upload *UploadOptions `yaml:"upload,omitempty"`
}

// UploadOptions configures the optional S3 mirror of finished archives.
type UploadOptions struct {
	Bucket          string `yaml:"bucket" validate:"required"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

func DefaultOptions() Options {
	return Options{
		Workers:     1,
		PadWidth:    3,
		RarEngine:   RarEngineUnrar,
		UnrarBinary: "unrar",
		Compression: "store",
	}
}

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

// ParseOptions parses a YAML options document on top of the defaults and
// validates the result.
func ParseOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (o Options) Validate() error {
	if err := defaultValidator.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	if _, err := o.toolTimeout(); err != nil {
		return err
	}
	return nil
}

func (o Options) toolTimeout() (time.Duration, error) {
	if o.ToolTimeout == "" {
		return cbr.DefaultToolTimeout, nil
	}
	d, err := time.ParseDuration(o.ToolTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid tool_timeout %q: %w", o.ToolTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("tool_timeout must be positive")
	}
	return d, nil
}
