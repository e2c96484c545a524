// Package render rewrites whole template lines that start with a known directive prefix.
//
// It is not a template language: a directive only ever replaces the
// entire line it appears on, lines with unknown prefixes are copied byte for byte,
// and nothing is substituted inline. The same engine renders the simulation config
// (fep.tcl) and the Grid Engine job-script skeleton.
package render

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Directive describes one recognized line prefix.
type Directive struct {
	Name     string              // Substitution key (e.g. "outdir")
	Prefix   string              // Line prefix that selects this directive
	Format   func(string) string // Builds the replacement line (without line terminator)
	Optional bool                // Drop the line when the substitution is empty
}

// Substitutions maps directive names to their values.
type Substitutions map[string]string

// Renderer rewrites lines matching its directives.
type Renderer struct {
	directives []Directive
}

// New returns a Renderer for the given directives. When prefixes overlap the
// first directive listed wins.
func New(directives ...Directive) *Renderer {
	return &Renderer{directives: directives}
}

// Directives returns the directives recognized by r.
func (r *Renderer) Directives() []Directive {
	out := make([]Directive, len(r.directives))
	copy(out, r.directives)
	return out
}

// TemplateNotFoundError is returned when a template path does not exist.
type TemplateNotFoundError struct {
	Path string
	Err  error
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template not found: %s", e.Path)
}

func (e *TemplateNotFoundError) Unwrap() error {
	return e.Err
}

// IsTemplateNotFound checks if an error is a TemplateNotFoundError
func IsTemplateNotFound(err error) bool {
	var tnf *TemplateNotFoundError
	return errors.As(err, &tnf)
}

// RenderFile renders the template stored at path.
func (r *Renderer) RenderFile(path string, subs Substitutions) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &TemplateNotFoundError{Path: path, Err: err}
		}
		return "", fmt.Errorf("failed to open template %s: %w", path, err)
	}
	defer f.Close()

	out, err := r.Render(f, subs)
	if err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", path, err)
	}
	return out, nil
}

// RenderString renders an in-memory template.
func (r *Renderer) RenderString(tmpl string, subs Substitutions) (string, error) {
	return r.Render(strings.NewReader(tmpl), subs)
}

// Render reads a template from in and returns the rewritten text.
func (r *Renderer) Render(in io.Reader, subs Substitutions) (string, error) {
	var out strings.Builder
	reader := bufio.NewReader(in)

	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			r.writeLine(&out, line, subs)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return out.String(), nil
}

func (r *Renderer) writeLine(out *strings.Builder, line string, subs Substitutions) {
	body, eol := splitEOL(line)

	d := r.match(body)
	if d == nil {
		out.WriteString(line)
		return
	}
	value, ok := subs[d.Name]
	if !ok {
		out.WriteString(line)
		return
	}
	if d.Optional && value == "" {
		return
	}
	out.WriteString(d.Format(value))
	out.WriteString(eol)
}

func (r *Renderer) match(body string) *Directive {
	for i := range r.directives {
		if strings.HasPrefix(body, r.directives[i].Prefix) {
			return &r.directives[i]
		}
	}
	return nil
}

// splitEOL separates a line from its terminator ("\n", "\r\n", or none on the last line).
func splitEOL(line string) (string, string) {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2], "\r\n"
	}
	if strings.HasSuffix(line, "\n") {
		return line[:len(line)-1], "\n"
	}
	return line, ""
}

// Printf returns a Format function that applies format to the value.
func Printf(format string) func(string) string {
	return func(v string) string { return fmt.Sprintf(format, v) }
}

// Verbatim is a Format function that inserts the value unchanged.
func Verbatim(v string) string { return v }
