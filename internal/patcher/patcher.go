package patcher

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"livecanvas/internal/logging"
)

// DefaultMixinModule is the origin of the one hand-authored named import
// that must always survive patching.
const DefaultMixinModule = "@canvas/live"

// Patcher rewrites one authored source document per generation pass.
type Patcher struct {
	MixinModule string
	Boundary    BoundaryStrategy
	parser      *sitter.Parser
}

// New returns a patcher with the default marker boundary and mixin module.
func New() *Patcher {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	return &Patcher{
		MixinModule: DefaultMixinModule,
		Boundary:    NewMarkerBoundary(),
		parser:      parser,
	}
}

// importStmt is one import statement found in the document.
type importStmt struct {
	startLine int
	endLine   int
	module    string
	// pureNamed marks statements of the form `import { a, b } from "m"`,
	// the only shape the generator ever emits. Statements that also bind a
	// default or namespace clause are hand-authored and untouchable.
	pureNamed bool
}

// Patch replaces the machine-generated imports and the render-boundary
// body. On any failure the original text comes back unchanged alongside
// the error.
func (p *Patcher) Patch(source string, imports []string, body string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryPatcher).Error("patch panicked, source preserved: %v", r)
			out, err = source, fmt.Errorf("patch aborted: %v", r)
		}
	}()

	lines := strings.Split(source, "\n")

	// Locate all anchors before touching anything.
	openLine, closeLine, err := p.Boundary.Locate(lines)
	if err != nil {
		return source, err
	}

	stmts, err := p.scanImports(source)
	if err != nil {
		return source, fmt.Errorf("%w: %v", ErrNoImportAnchor, err)
	}

	machine := make(map[int]bool) // line indexes owned by generated imports
	for _, s := range stmts {
		if !s.pureNamed || s.module == p.MixinModule {
			continue
		}
		for i := s.startLine; i <= s.endLine; i++ {
			machine[i] = true
		}
	}

	insertAt := p.insertionLine(lines, openLine, stmts, machine)

	bodyIndent := indentOf(lines[openLine])
	var final []string
	for i := 0; i < len(lines); i++ {
		if i == insertAt {
			final = append(final, imports...)
		}
		switch {
		case machine[i]:
			// A replaced import statement; its substitute went in above.
		case i == openLine:
			final = append(final, lines[i])
			for _, bl := range strings.Split(body, "\n") {
				final = append(final, bodyIndent+bl)
			}
			i = closeLine - 1 // old interior is discarded
		default:
			final = append(final, lines[i])
		}
	}

	logging.Get(logging.CategoryPatcher).Debug("patched: %d imports, body between lines %d and %d", len(imports), openLine+1, closeLine+1)
	return strings.Join(final, "\n"), nil
}

// insertionLine finds where generated imports belong: scan from the top
// skipping blank lines, comments, default imports, and the machine imports
// being replaced; the first line matching none of these is the boundary.
// The scan never crosses the render boundary's opening marker.
func (p *Patcher) insertionLine(lines []string, openLine int, stmts []importStmt, machine map[int]bool) int {
	skippable := make(map[int]bool)
	for _, s := range stmts {
		if !s.pureNamed {
			for i := s.startLine; i <= s.endLine; i++ {
				skippable[i] = true
			}
		}
	}
	inBlockComment := false
	for i, line := range lines {
		if i >= openLine {
			return openLine
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case inBlockComment:
			if strings.Contains(trimmed, "*/") {
				inBlockComment = false
			}
		case trimmed == "" || strings.HasPrefix(trimmed, "//"):
		case strings.HasPrefix(trimmed, "/*"):
			if !strings.Contains(trimmed, "*/") {
				inBlockComment = true
			}
		case skippable[i] || machine[i]:
		default:
			return i
		}
	}
	return openLine
}

// scanImports parses the document and collects its import statements.
func (p *Patcher) scanImports(source string) ([]importStmt, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, []byte(source))
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var stmts []importStmt
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if n.Type() != "import_statement" {
			continue
		}
		stmt := importStmt{
			startLine: int(n.StartPoint().Row),
			endLine:   int(n.EndPoint().Row),
		}
		if src := n.ChildByFieldName("source"); src != nil {
			stmt.module = strings.Trim(source[src.StartByte():src.EndByte()], "\"'`")
		}
		stmt.pureNamed = isPureNamed(n)
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// isPureNamed reports whether the import binds only a named-import clause.
func isPureNamed(stmt *sitter.Node) bool {
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		c := stmt.NamedChild(i)
		if c.Type() != "import_clause" {
			continue
		}
		hasNamed := false
		for j := 0; j < int(c.NamedChildCount()); j++ {
			switch c.NamedChild(j).Type() {
			case "named_imports":
				hasNamed = true
			case "identifier", "namespace_import":
				return false
			}
		}
		return hasNamed
	}
	return false
}
