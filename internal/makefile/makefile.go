// Package makefile extracts structured target metadata from Makefile text.
// It recognises only documented declarations (name: deps ## description),
// category marker comments, and .PHONY lists; everything else in the file
// is ignored. It never executes anything.
package makefile

import (
	"fmt"
	"sort"
)

// Target is one documented build operation declared in a Makefile.
type Target struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category,omitempty"`     // empty = uncategorised
	Dependencies []string `json:"dependencies,omitempty"` // as declared, not validated
	Phony        bool     `json:"phony"`
	Internal     bool     `json:"internal"` // marked @internal or @skip; never exposed
}

// Catalog is the parse result for one Makefile. It is built once per parse
// and never mutated afterwards; re-parsing replaces it wholesale.
type Catalog struct {
	Source     string             `json:"source"`
	Targets    map[string]*Target `json:"targets"`
	Categories []string           `json:"categories,omitempty"` // first-seen order
}

// Lookup returns the target with the given name.
func (c *Catalog) Lookup(name string) (*Target, bool) {
	t, ok := c.Targets[name]
	return t, ok
}

// Names returns all target names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exposed returns the targets that may be listed remotely (everything not
// marked internal), sorted by name.
func (c *Catalog) Exposed() []*Target {
	var out []*Target
	for _, t := range c.Targets {
		if !t.Internal {
			out = append(out, t)
		}
	}
	sortTargets(out)
	return out
}

// Hidden returns the targets marked internal, sorted by name.
func (c *Catalog) Hidden() []*Target {
	var out []*Target
	for _, t := range c.Targets {
		if t.Internal {
			out = append(out, t)
		}
	}
	sortTargets(out)
	return out
}

// ByCategory returns the targets declared under the given category label,
// sorted by name. The empty label selects uncategorised targets.
func (c *Catalog) ByCategory(category string) []*Target {
	var out []*Target
	for _, t := range c.Targets {
		if t.Category == category {
			out = append(out, t)
		}
	}
	sortTargets(out)
	return out
}

func sortTargets(ts []*Target) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Name < ts[j].Name })
}

// NotFoundError reports a Makefile path that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("makefile not found: %s", e.Path)
}

// ParseError reports a Makefile that could not be read or parsed.
// Malformed lines never cause a ParseError; only an unreadable,
// non-regular, or non-text file does.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %s", e.Path, e.Reason)
}
