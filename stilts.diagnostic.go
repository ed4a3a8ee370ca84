package stilts

import (
	"errors"
	"strings"
)

// DiagnosticOf returns the diagnostic carried by an error returned by this
// package.
func DiagnosticOf(err error) (*Diagnostic, bool) {
	var diag *Diagnostic
	if errors.As(err, &diag) {
		return diag, true
	}
	return nil, false
}

// FormatError renders an error for humans. Errors that carry a diagnostic
// are shown with their source line, as a caret report when fancy is set;
// loader causes are appended. Other errors are returned as is.
func FormatError(err error, fancy bool) string {
	if err == nil {
		return ""
	}
	diag, ok := DiagnosticOf(err)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	if fancy {
		sb.WriteString(strings.TrimRight(diag.DisplayFancy(), "\n"))
	} else {
		sb.WriteString(diag.DisplaySimple())
	}

	var lerr *LoaderError
	if errors.As(err, &lerr) {
		if fancy {
			sb.WriteString("\ncaused by: ")
		} else {
			sb.WriteString(": ")
		}
		sb.WriteString(lerr.Error())
	}
	return sb.String()
}
