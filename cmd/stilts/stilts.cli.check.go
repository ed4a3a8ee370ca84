package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/itsatony/go-stilts"
)

// checkConfig holds parsed check command configuration
type checkConfig struct {
	templatePath string
	format       string
	fancy        bool
	host         string
	open         string
	close        string
}

// checkOutput represents JSON output for check
type checkOutput struct {
	Valid    bool   `json:"valid"`
	Template string `json:"template"`
	Message  string `json:"message,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Code     string `json:"code,omitempty"`
}

func runCheck(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseCheckFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidArguments, err)
		return ExitCodeUsageError
	}

	source, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	host, ok := stilts.HostByName(cfg.host)
	if !ok {
		fmt.Fprintf(stderr, FmtErrorWithDetail, ErrMsgUnknownHost, cfg.host)
		return ExitCodeUsageError
	}
	engine, err := stilts.New(stilts.WithHost(host), stilts.WithDelimiters(cfg.open, cfg.close))
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgEngineFailed, err)
		return ExitCodeUsageError
	}
	defer engine.Close()

	name := cfg.templatePath
	if name == InputSourceStdin {
		name = StdinName
	}
	_, parseErr := engine.Parse(name, string(source))

	if cfg.format == OutputFormatJSON {
		return outputCheckJSON(name, parseErr, stdout)
	}
	if parseErr != nil {
		fmt.Fprintln(stdout, stilts.FormatError(parseErr, cfg.fancy))
		return ExitCodeValidationError
	}
	fmt.Fprintln(stdout, CheckTextSuccess)
	return ExitCodeSuccess
}

func parseCheckFlags(args []string) (*checkConfig, error) {
	fs := flag.NewFlagSet(CmdNameCheck, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &checkConfig{}

	fs.StringVar(&cfg.templatePath, FlagTemplate, "", "")
	fs.StringVar(&cfg.templatePath, FlagTemplateShort, "", "")
	fs.StringVar(&cfg.format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&cfg.format, FlagFormatShort, FlagDefaultFormat, "")
	fs.BoolVar(&cfg.fancy, FlagFancy, false, "")
	fs.StringVar(&cfg.host, FlagHost, stilts.DefaultHost, "")
	fs.StringVar(&cfg.open, FlagOpen, stilts.DefaultOpenDelim, "")
	fs.StringVar(&cfg.close, FlagClose, stilts.DefaultCloseDelim, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.templatePath == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}

	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}

	return cfg, nil
}

func outputCheckJSON(name string, parseErr error, stdout io.Writer) int {
	output := checkOutput{Valid: parseErr == nil, Template: name}
	if parseErr != nil {
		output.Code = stilts.ErrorCode(parseErr)
		output.Message = parseErr.Error()
		if diag, ok := stilts.DiagnosticOf(parseErr); ok {
			output.Message = diag.Message
			pos := diag.Position()
			output.Line = pos.Line
			output.Column = pos.Column
		}
	}

	jsonBytes, _ := json.MarshalIndent(output, "", "  ")
	fmt.Fprintln(stdout, string(jsonBytes))

	if !output.Valid {
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}
