// Package config loads the app configuration: a CUE file unified with the
// embedded #Config schema, then overridden by command-line flags.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/format"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "manyverse.cue"

// Config is the resolved configuration.
type Config struct {
	Platform   string   `json:"platform"`
	DB         string   `json:"db"`
	Log        Log      `json:"log"`
	Transports []string `json:"transports"`
	Listen     string   `json:"listen"`
	PublicKey  string   `json:"publicKey"`
	Firewall   Firewall `json:"firewall"`
}

// Log configures the slog handler.
type Log struct {
	Level string `json:"level"`
}

// Firewall configures the transport firewall.
type Firewall struct {
	RejectUnknown bool `json:"rejectUnknown"`
}

// Overrides are flag values. Nil fields leave the file value alone.
type Overrides struct {
	Platform *string
	DB       *string
	LogLevel *string
}

// Error is a configuration error with a CUE position when one is known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Load reads path and resolves it against the schema. An empty path uses
// DefaultFile if it exists and the schema defaults otherwise.
func Load(path string, o Overrides) (Config, error) {
	name := path
	if path == "" {
		name = DefaultFile
	}
	data, err := os.ReadFile(name)
	switch {
	case err == nil:
	case path == "" && errors.Is(err, os.ErrNotExist):
		data, name = nil, "<defaults>"
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(name, data, o)
}

// Parse resolves data (CUE source, possibly empty) against the schema and
// applies the overrides. Overrides are unified too, so a flag value outside
// the schema is rejected the same way a file value is.
func Parse(filename string, data []byte, o Overrides) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("config schema: %w", err)
	}

	file := ctx.CompileBytes(data, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Config{}, wrap(err)
	}

	v := schema.Unify(file)
	if o.Platform != nil {
		v = v.FillPath(cue.ParsePath("platform"), *o.Platform)
	}
	if o.DB != nil {
		v = v.FillPath(cue.ParsePath("db"), *o.DB)
	}
	if o.LogLevel != nil {
		v = v.FillPath(cue.ParsePath("log.level"), *o.LogLevel)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, wrap(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, wrap(err)
	}
	return cfg, nil
}

// Format renders cfg as CUE source.
func Format(cfg Config) ([]byte, error) {
	v := cuecontext.New().Encode(cfg)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	out, err := format.Node(v.Syntax(cue.Final()))
	if err != nil {
		return nil, fmt.Errorf("format config: %w", err)
	}
	return out, nil
}

// wrap reports the first CUE error with its position.
func wrap(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	cfgErr := &Error{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		cfgErr.Pos = positions[0]
	}
	return cfgErr
}
