package entitymap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/r9s-ai/open-sync-router/pkg/pathmap"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of Lint. Errors make the map unusable; warnings flag
// configuration the permissive path grammar would silently reinterpret.
type Issue struct {
	Severity Severity `json:"severity"`
	Entity   string   `json:"entity"`
	Field    string   `json:"field,omitempty"`
	Path     string   `json:"path,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Severity))
	b.WriteString(": ")
	if i.Entity != "" {
		b.WriteString(i.Entity)
	} else {
		b.WriteString("<unnamed entity>")
	}
	if i.Field != "" {
		b.WriteString(".")
		b.WriteString(i.Field)
	}
	if i.Path != "" {
		fmt.Fprintf(&b, " path=%q", i.Path)
	}
	b.WriteString(": ")
	b.WriteString(i.Message)
	return b.String()
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Lint checks one entity map.
func Lint(em EntityMap, opts PayloadOptions) []Issue {
	entity := entityLabel(em)
	var issues []Issue
	add := func(sev Severity, field, path, msg string) {
		issues = append(issues, Issue{Severity: sev, Entity: entity, Field: field, Path: path, Message: msg})
	}

	if strings.TrimSpace(em.SourceEntityName) == "" {
		add(SeverityError, "", "", "source_entity_name is empty")
	}
	if strings.TrimSpace(em.TargetEntityName) == "" {
		add(SeverityError, "", "", "target_entity_name is empty")
	}

	seen := make(map[string]struct{}, len(em.Fields))
	for i, f := range em.Fields {
		name := f.NormName
		if strings.TrimSpace(name) == "" {
			add(SeverityError, fmt.Sprintf("#%d", i), "", "norm_name is empty")
		} else if _, dup := seen[name]; dup {
			add(SeverityError, name, "", "duplicate norm_name")
		}
		seen[name] = struct{}{}

		if f.SourcePath == "" && f.TargetPath == "" {
			add(SeverityWarning, name, "", "field has neither source_path nor target_path")
			continue
		}
		if f.SourcePath != "" {
			for _, pi := range pathmap.Lint(f.SourcePath, pathmap.ReadMode) {
				add(SeverityWarning, name, f.SourcePath, "source read: "+pi.String())
			}
		}
		if f.TargetPath != "" {
			for _, pi := range pathmap.Lint(f.TargetPath, pathmap.ReadMode) {
				add(SeverityWarning, name, f.TargetPath, "target read: "+pi.String())
			}
			wp := opts.writePath(f.TargetPath)
			for _, pi := range pathmap.Lint(wp, pathmap.WriteMode) {
				add(SeverityWarning, name, f.TargetPath, "target write: "+pi.String())
			}
			if tokens := opts.WriteTokens(f.TargetPath); len(tokens) > 0 && tokens[0].Kind != pathmap.KindKey {
				add(SeverityWarning, name, f.TargetPath, fmt.Sprintf("target write path %s must start with a key; field is never written", pathmap.Format(tokens)))
			}
		}
	}
	return issues
}

// LintAll lints every map and reports entity names reused on one side.
func LintAll(ms EntityMaps, opts PayloadOptions) []Issue {
	var issues []Issue
	for _, side := range []Side{SideSource, SideTarget} {
		seen := map[string]struct{}{}
		for _, m := range ms {
			name := m.EntityName(side)
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Entity:   entityLabel(m),
					Message:  fmt.Sprintf("duplicate %s entity name %q", side, name),
				})
			}
			seen[name] = struct{}{}
		}
	}
	for _, m := range ms {
		issues = append(issues, Lint(m, opts)...)
	}
	return issues
}

// Validate returns the error-severity findings of LintAll joined into one
// error, or nil.
func Validate(ms EntityMaps, opts PayloadOptions) error {
	var errs []error
	for _, i := range LintAll(ms, opts) {
		if i.Severity == SeverityError {
			errs = append(errs, errors.New(i.String()))
		}
	}
	return errors.Join(errs...)
}

func entityLabel(em EntityMap) string {
	switch {
	case em.SourceEntityName != "" && em.TargetEntityName != "":
		return em.SourceEntityName + "->" + em.TargetEntityName
	case em.SourceEntityName != "":
		return em.SourceEntityName
	default:
		return em.TargetEntityName
	}
}
