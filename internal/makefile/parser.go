package makefile

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Parser turns Makefile text into a Catalog. Implementations must be
// deterministic: identical input yields an identical catalog.
type Parser interface {
	// Parse scans content and returns the catalog of documented targets.
	// Malformed lines are skipped silently; a catalog with zero targets
	// is valid. source labels the catalog for logs and reports.
	Parse(content []byte, source string) (*Catalog, error)

	// ParseFile reads and parses the Makefile at path. It returns a
	// *NotFoundError when the path does not exist and a *ParseError when
	// the path is not a regular readable UTF-8 text file.
	ParseFile(path string) (*Catalog, error)
}

var (
	// targetPattern matches documented declarations: name: deps ## description
	targetPattern = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_-]*)\s*:([^#]*)##\s*(.+)$`)

	// categoryPattern matches marker comments: ## Category: Name
	categoryPattern = regexp.MustCompile(`^##\s*Category:\s*(.+)$`)

	// phonyPattern matches .PHONY declarations.
	phonyPattern = regexp.MustCompile(`^\.PHONY:\s*(.+)$`)
)

// internalMarkers are the description prefixes that hide a target from
// remote use. The marker must be the whole description or be followed by
// a space.
var internalMarkers = []string{"@internal", "@skip"}

// RegexParser is the production Parser. It scans line by line in two
// passes: one to collect .PHONY names, one to collect categories and
// target declarations in positional order.
type RegexParser struct {
	log zerolog.Logger
}

// NewRegexParser returns a RegexParser that logs its parse summary to log.
func NewRegexParser(log zerolog.Logger) *RegexParser {
	return &RegexParser{log: log}
}

// Parse implements Parser.
func (p *RegexParser) Parse(content []byte, source string) (*Catalog, error) {
	cat := &Catalog{
		Source:  source,
		Targets: make(map[string]*Target),
	}

	lines := strings.Split(string(content), "\n")

	// Pass 1: collect .PHONY names so declarations can appear in any order
	// relative to the targets they mark.
	phony := make(map[string]struct{})
	for _, line := range lines {
		if m := phonyPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			for _, name := range strings.Fields(m[1]) {
				phony[name] = struct{}{}
			}
		}
	}

	// Pass 2: category markers and target declarations. A marker sets the
	// category for the targets that follow it, so order matters here.
	current := ""
	seen := make(map[string]struct{})
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")

		if m := categoryPattern.FindStringSubmatch(line); m != nil {
			current = strings.TrimSpace(m[1])
			if _, ok := seen[current]; !ok {
				seen[current] = struct{}{}
				cat.Categories = append(cat.Categories, current)
			}
			continue
		}

		m := targetPattern.FindStringSubmatch(line)
		if m == nil {
			continue // unrelated or malformed line; never an error
		}

		name := m[1]
		deps := strings.Fields(m[2])
		desc, internal := stripInternalMarker(strings.TrimSpace(m[3]))

		_, phonyTarget := phony[name]

		// Later declarations of the same name overwrite earlier ones.
		cat.Targets[name] = &Target{
			Name:         name,
			Description:  desc,
			Category:     current,
			Dependencies: deps,
			Phony:        phonyTarget,
			Internal:     internal,
		}
	}

	exposed := len(cat.Exposed())
	p.log.Info().
		Str("source", source).
		Int("targets", len(cat.Targets)).
		Int("exposed", exposed).
		Int("internal", len(cat.Targets)-exposed).
		Msg("parsed makefile")

	if len(cat.Targets) == 0 {
		p.log.Warn().Str("source", source).Msg("no documented targets found")
	}

	return cat, nil
}

// ParseFile implements Parser.
func (p *RegexParser) ParseFile(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("stat failed: %v", err)}
	}
	if !info.Mode().IsRegular() {
		return nil, &ParseError{Path: path, Reason: "path is not a regular file"}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("read failed: %v", err)}
	}
	if !utf8.Valid(content) {
		return nil, &ParseError{Path: path, Reason: "file is not valid UTF-8 text"}
	}

	return p.Parse(content, path)
}

// stripInternalMarker reports whether desc begins with an internal marker
// and returns the description with the marker removed. A marker with no
// following text yields an empty description.
func stripInternalMarker(desc string) (string, bool) {
	for _, marker := range internalMarkers {
		if desc == marker {
			return "", true
		}
		if strings.HasPrefix(desc, marker+" ") {
			return strings.TrimLeft(desc[len(marker):], " \t"), true
		}
	}
	return desc, false
}

// FixedParser returns a prebuilt catalog regardless of input. It exists
// for deterministic tests of catalog consumers.
type FixedParser struct {
	Catalog *Catalog
	Err     error
}

// Parse implements Parser.
func (p *FixedParser) Parse([]byte, string) (*Catalog, error) {
	return p.Catalog, p.Err
}

// ParseFile implements Parser.
func (p *FixedParser) ParseFile(string) (*Catalog, error) {
	return p.Catalog, p.Err
}
