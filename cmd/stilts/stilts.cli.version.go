package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"gopkg.in/yaml.v3"
)

// versionsFile is looked up in the working directory and its parents
const versionsFile = "versions.yaml"

// versionSearchDepth bounds the parent directories searched for versionsFile
const versionSearchDepth = 3

// versionInfo is both the text and the JSON form of the version command
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// versionsYAML is the subset of versions.yaml the CLI reads
type versionsYAML struct {
	Project struct {
		Version string `yaml:"version"`
	} `yaml:"project"`
	Git struct {
		Commit string `yaml:"commit"`
		Branch string `yaml:"branch"`
	} `yaml:"git"`
	Build struct {
		Time      string `yaml:"time"`
		GoVersion string `yaml:"go_version"`
	} `yaml:"build"`
}

func runVersion(args []string, stdout, stderr io.Writer) int {
	format, err := parseVersionFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFormat, err)
		return ExitCodeUsageError
	}

	info := getVersionInfo()
	if format == OutputFormatJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgMarshalFailed, err)
			return ExitCodeError
		}
		fmt.Fprintln(stdout, string(data))
		return ExitCodeSuccess
	}

	fmt.Fprintf(stdout, VersionTextTemplate+FmtNewline,
		info.Version, info.Commit, info.Branch, info.BuildTime, info.GoVersion)
	return ExitCodeSuccess
}

func parseVersionFlags(args []string) (string, error) {
	fs := flag.NewFlagSet(CmdNameVersion, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var format string
	fs.StringVar(&format, FlagFormat, FlagDefaultFormat, "")
	fs.StringVar(&format, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if format != OutputFormatText && format != OutputFormatJSON {
		return "", errors.New(ErrMsgInvalidFormat)
	}
	return format, nil
}

// getVersionInfo prefers the module and VCS data stamped into the binary and
// fills the gaps from a versions.yaml next to the working directory.
func getVersionInfo() *versionInfo {
	info := &versionInfo{
		Version:   VersionUnknown,
		Commit:    VersionUnknown,
		Branch:    VersionUnknown,
		BuildTime: VersionUnknown,
		GoVersion: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			info.Version = v
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = s.Value
			case "vcs.time":
				info.BuildTime = s.Value
			}
		}
	}

	dir := "."
	for range versionSearchDepth {
		data, err := os.ReadFile(filepath.Join(dir, versionsFile))
		dir = filepath.Join(dir, "..")
		if err != nil {
			continue
		}
		var vy versionsYAML
		if err := yaml.Unmarshal(data, &vy); err != nil {
			continue
		}
		fill(&info.Version, vy.Project.Version)
		fill(&info.Commit, vy.Git.Commit)
		fill(&info.Branch, vy.Git.Branch)
		fill(&info.BuildTime, vy.Build.Time)
		if vy.Build.GoVersion != "" {
			info.GoVersion = vy.Build.GoVersion
		}
		break
	}
	return info
}

// fill replaces an unknown field with a non-empty value
func fill(field *string, value string) {
	if *field == VersionUnknown && value != "" {
		*field = value
	}
}
