// Package policy decides which catalog targets are exposed as tools and
// authorizes individual invocations against the configured allowlist.
package policy

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/makehand/makehand/internal/makefile"
)

// Descriptor is one target prepared for tool registration.
type Descriptor struct {
	// Name is the tool name, identical to the target name.
	Name string
	// Description is the doc comment enriched with category and dependencies.
	Description string
	// InputSchema is the JSON Schema for the tool's input.
	InputSchema map[string]any
}

// Policy filters the catalog down to the targets an agent may run.
// Internal targets are never exposed; when an allowlist is configured,
// only its members are.
type Policy struct {
	catalog        *makefile.Catalog
	allowed        map[string]bool // nil when no allowlist is configured
	defaultTimeout time.Duration
	log            zerolog.Logger
}

// AllowlistError reports allowlisted names that do not exist in the
// catalog. Activation fails on it so that a typo in the allowlist is
// caught at startup rather than silently hiding a target.
type AllowlistError struct {
	Missing   []string
	Available []string
}

func (e *AllowlistError) Error() string {
	return fmt.Sprintf("allowed targets not found in makefile: %s (available targets: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

// UnknownTargetError rejects a name absent from the catalog.
type UnknownTargetError struct {
	Name  string
	Known []string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown target %q, available targets: %s", e.Name, strings.Join(e.Known, ", "))
}

// InternalTargetError rejects a target hidden by an @internal or @skip
// marker.
type InternalTargetError struct {
	Name string
}

func (e *InternalTargetError) Error() string {
	return fmt.Sprintf("target %q is internal and cannot be executed remotely (internal targets are marked with @internal or @skip)", e.Name)
}

// NotAllowedError rejects a target outside the configured allowlist.
type NotAllowedError struct {
	Name    string
	Allowed []string
}

func (e *NotAllowedError) Error() string {
	return fmt.Sprintf("target %q is not in the allowed targets list (allowed: %s)", e.Name, strings.Join(e.Allowed, ", "))
}

// New validates the allowlist against the catalog and returns the
// resulting policy. defaultTimeout is advertised in every tool schema as
// the timeout applied when a caller omits one.
func New(cat *makefile.Catalog, allowlist []string, defaultTimeout time.Duration, log zerolog.Logger) (*Policy, error) {
	p := &Policy{
		catalog:        cat,
		defaultTimeout: defaultTimeout,
		log:            log,
	}

	if len(allowlist) > 0 {
		p.allowed = make(map[string]bool, len(allowlist))
		for _, name := range allowlist {
			p.allowed[name] = true
		}

		var missing, internal []string
		for name := range p.allowed {
			target, ok := cat.Lookup(name)
			if !ok {
				missing = append(missing, name)
				continue
			}
			if target.Internal {
				internal = append(internal, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return nil, &AllowlistError{Missing: missing, Available: cat.Names()}
		}
		if len(internal) > 0 {
			sort.Strings(internal)
			log.Warn().
				Strs("targets", internal).
				Msg("allowlisted targets are internal and stay hidden")
		}
	}

	if len(p.Exposed()) == 0 {
		if p.allowed != nil {
			log.Warn().Msg("allowlist exposes no targets")
		} else {
			log.Warn().Str("makefile", cat.Source).Msg("no documented targets to expose")
		}
	}
	return p, nil
}

// Exposed returns descriptors for every target that passes the policy,
// sorted by name.
func (p *Policy) Exposed() []Descriptor {
	var out []Descriptor
	for _, target := range p.catalog.Exposed() {
		if p.allowed != nil && !p.allowed[target.Name] {
			continue
		}
		out = append(out, Descriptor{
			Name:        target.Name,
			Description: describe(target),
			InputSchema: p.inputSchema(),
		})
	}
	return out
}

// Authorize checks a single invocation. The checks run in order: the
// target must exist, must not be internal, and must be allowlisted when
// an allowlist is configured.
func (p *Policy) Authorize(name string) (*makefile.Target, error) {
	target, ok := p.catalog.Lookup(name)
	if !ok {
		p.log.Warn().Str("target", name).Msg("rejected unknown target")
		return nil, &UnknownTargetError{Name: name, Known: p.catalog.Names()}
	}
	if target.Internal {
		p.log.Warn().Str("target", name).Msg("rejected internal target")
		return nil, &InternalTargetError{Name: name}
	}
	if p.allowed != nil && !p.allowed[name] {
		p.log.Warn().Str("target", name).Msg("rejected target outside allowlist")
		return nil, &NotAllowedError{Name: name, Allowed: p.allowlistNames()}
	}
	return target, nil
}

func (p *Policy) allowlistNames() []string {
	names := make([]string, 0, len(p.allowed))
	for name := range p.allowed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// describe synthesizes the tool description from the target metadata:
// category prefix, doc comment, dependency suffix.
func describe(t *makefile.Target) string {
	desc := t.Description
	if t.Category != "" {
		desc = "[" + t.Category + "] " + desc
	}
	if len(t.Dependencies) > 0 {
		desc += " (depends on: " + strings.Join(t.Dependencies, ", ") + ")"
	}
	return desc
}

// inputSchema returns the JSON Schema shared by every target tool.
func (p *Policy) inputSchema() map[string]any {
	seconds := int(p.defaultTimeout.Seconds())
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"variables": map[string]any{
				"type":                 "object",
				"description":          "Make variables to pass (e.g., {'DEBUG': '1'})",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": fmt.Sprintf("Timeout in seconds (default: %d, max recommended: 3600)", seconds),
				"default":     seconds,
				"minimum":     1,
			},
		},
	}
}
