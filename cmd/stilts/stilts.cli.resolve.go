package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/itsatony/go-stilts"
)

// resolveConfig holds parsed resolve command configuration
type resolveConfig struct {
	reference  string
	configPath string
	dir        string
	block      string
	format     string
	outputPath string
	fancy      bool
	verbose    bool
}

// planOutput is the structured form of a resolved plan
type planOutput struct {
	Reference string           `json:"reference" yaml:"reference"`
	Block     string           `json:"block,omitempty" yaml:"block,omitempty"`
	Templates []templateOutput `json:"templates" yaml:"templates"`
	Items     []itemOutput     `json:"items" yaml:"items"`
}

type templateOutput struct {
	Identity  string `json:"identity" yaml:"identity"`
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
	Escaper   string `json:"escaper" yaml:"escaper"`
	Trim      bool   `json:"trim" yaml:"trim"`
	MimeType  string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
}

type itemOutput struct {
	Origin string `json:"origin" yaml:"origin"`
	Type   string `json:"type" yaml:"type"`
	Line   int    `json:"line" yaml:"line"`
	Column int    `json:"column" yaml:"column"`
	Node   string `json:"node" yaml:"node"`
}

func runResolve(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseResolveFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidArguments, err)
		return ExitCodeUsageError
	}

	logger := zap.NewNop()
	if cfg.verbose {
		logger = newStderrLogger(stderr)
	}
	defer func() { _ = logger.Sync() }()

	engine, code := newResolveEngine(cfg, logger, stderr)
	if engine == nil {
		return code
	}
	defer engine.Close()

	ctx := context.Background()
	var plan *stilts.Plan
	if cfg.block != "" {
		plan, err = engine.ResolveBlock(ctx, cfg.reference, cfg.block)
	} else {
		plan, err = engine.Resolve(ctx, cfg.reference)
	}
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithDetail, ErrMsgResolveFailed, stilts.FormatError(err, cfg.fancy))
		if stilts.ErrorCode(err) == stilts.ErrCodeLoad && stilts.IsNotFound(err) {
			return ExitCodeInputError
		}
		return ExitCodeValidationError
	}

	data, err := formatPlan(cfg, plan)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMarshalFailed, err)
		return ExitCodeError
	}
	if err := writeOutput(cfg.outputPath, data, stdout); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}
	return ExitCodeSuccess
}

func parseResolveFlags(args []string) (*resolveConfig, error) {
	fs := flag.NewFlagSet(CmdNameResolve, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &resolveConfig{}

	fs.StringVar(&cfg.reference, FlagTemplate, "", "")
	fs.StringVar(&cfg.reference, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.configPath, FlagConfig, "", "")
	fs.StringVar(&cfg.configPath, FlagConfigShort, "", "")
	fs.StringVar(&cfg.dir, FlagDir, FlagDefaultDir, "")
	fs.StringVar(&cfg.dir, FlagDirShort, FlagDefaultDir, "")
	fs.StringVar(&cfg.block, FlagBlock, "", "")
	fs.StringVar(&cfg.block, FlagBlockShort, "", "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")
	fs.StringVar(&cfg.outputPath, FlagOutput, FlagDefaultOutput, "")
	fs.StringVar(&cfg.outputPath, FlagOutputShort, FlagDefaultOutput, "")
	fs.BoolVar(&cfg.fancy, FlagFancy, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerbose, false, "")
	fs.BoolVar(&cfg.verbose, FlagVerboseShort, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.reference == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}

	switch cfg.format {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
	default:
		return nil, errors.New(ErrMsgInvalidFormat)
	}

	return cfg, nil
}

// newResolveEngine builds the engine from a configuration file, or from a
// template directory when none is given. On failure it returns a nil
// engine and the exit code.
func newResolveEngine(cfg *resolveConfig, logger *zap.Logger, stderr io.Writer) (*stilts.Engine, int) {
	var conf *stilts.Config
	if cfg.configPath != "" {
		loaded, err := stilts.LoadConfig(cfg.configPath)
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgConfigFailed, err)
			return nil, ExitCodeInputError
		}
		conf = loaded
	} else {
		conf = stilts.DefaultConfig()
		conf.TemplateDir = cfg.dir
		conf.Loader.Driver = stilts.LoaderDriverFilesystem
	}

	engine, err := stilts.NewFromConfig(conf, stilts.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgEngineFailed, err)
		return nil, ExitCodeInputError
	}
	return engine, ExitCodeSuccess
}

// newStderrLogger logs human-readable debug lines to w
func newStderrLogger(w io.Writer) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel))
}

func formatPlan(cfg *resolveConfig, plan *stilts.Plan) ([]byte, error) {
	switch cfg.format {
	case OutputFormatJSON:
		data, err := json.MarshalIndent(toPlanOutput(cfg, plan), "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case OutputFormatYAML:
		return yaml.Marshal(toPlanOutput(cfg, plan))
	default:
		lines := plan.Outline()
		if len(lines) == 0 {
			return nil, nil
		}
		return []byte(strings.Join(lines, FmtNewline) + FmtNewline), nil
	}
}

func toPlanOutput(cfg *resolveConfig, plan *stilts.Plan) planOutput {
	out := planOutput{
		Reference: cfg.reference,
		Block:     cfg.block,
		Templates: make([]templateOutput, 0, len(plan.Templates)),
		Items:     make([]itemOutput, 0, len(plan.Items)),
	}
	for _, t := range plan.Templates {
		out.Templates = append(out.Templates, templateOutput{
			Identity:  t.Identity,
			Reference: t.Reference,
			Escaper:   t.Escaper,
			Trim:      t.Trim,
			MimeType:  t.MimeType,
		})
	}
	for _, it := range plan.Items {
		pos := it.Node.Pos()
		out.Items = append(out.Items, itemOutput{
			Origin: plan.Template(it).Identity,
			Type:   it.Node.Type().String(),
			Line:   pos.Line,
			Column: pos.Column,
			Node:   it.Node.String(),
		})
	}
	return out
}
