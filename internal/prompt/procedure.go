// Package prompt holds the operating procedure handed to the agent runtime
// as its system prompt.
package prompt

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed recipe_procedure.md
var recipeProcedure []byte

var ErrInvalidProcedure = errors.New("invalid procedure")

var frontMatterDelim = []byte("---")

// Meta is the front matter of a procedure file.
type Meta struct {
	Version  int      `yaml:"version"`
	Site     string   `yaml:"site"`
	Sections []string `yaml:"sections"`
}

// Procedure is an immutable instruction document.
type Procedure struct {
	Meta Meta
	Text string
}

// Default returns the built-in recipe procedure.
func Default() (Procedure, error) {
	return Parse(recipeProcedure)
}

// Load reads a procedure file, falling back to the built-in one for an
// empty path.
func Load(path string) (Procedure, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Procedure{}, fmt.Errorf("read procedure: %w", err)
	}
	return Parse(data)
}

// Parse splits optional YAML front matter from the body and validates the
// result.
func Parse(data []byte) (Procedure, error) {
	var p Procedure
	body := data

	if rest, ok := bytes.CutPrefix(bytes.TrimPrefix(data, []byte("\ufeff")), frontMatterDelim); ok {
		head, tail, found := bytes.Cut(rest, append([]byte("\n"), frontMatterDelim...))
		if !found {
			return Procedure{}, fmt.Errorf("%w: unterminated front matter", ErrInvalidProcedure)
		}
		if err := yaml.Unmarshal(head, &p.Meta); err != nil {
			return Procedure{}, fmt.Errorf("%w: front matter: %v", ErrInvalidProcedure, err)
		}
		body = tail
	}

	p.Text = strings.TrimSpace(string(body))
	if err := p.Validate(); err != nil {
		return Procedure{}, err
	}
	return p, nil
}

// Validate checks that the body is present and that each section named
// in the front matter has a heading.
func (p Procedure) Validate() error {
	if p.Text == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidProcedure)
	}
	var missing []string
	for _, s := range p.Meta.Sections {
		if !strings.Contains(p.Text, "## "+s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing sections %s", ErrInvalidProcedure, strings.Join(missing, ", "))
	}
	return nil
}

// Section returns the body of the "## name" section, without its heading.
func (p Procedure) Section(name string) (string, bool) {
	_, after, found := strings.Cut(p.Text, "## "+name+"\n")
	if !found {
		return "", false
	}
	if next := strings.Index(after, "\n## "); next >= 0 {
		after = after[:next]
	}
	return strings.TrimSpace(after), true
}
