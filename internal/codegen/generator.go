// Package codegen regenerates component-construction source from a
// snapshot tree: the import statements the constructions need plus the
// body text that goes between the render boundary markers. Import
// requirements are derived fresh on every pass and never persisted.
package codegen

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"livecanvas/internal/logging"
	"livecanvas/internal/registry"
	"livecanvas/internal/snapshot"
)

// DefaultSharedModule is the module that provides the standard element
// constructors. One combined import statement covers all of them.
const DefaultSharedModule = "@canvas/elements"

// attrKeyMap translates display-oriented attribute keys into the keys the
// construction idiom expects. Everything else passes through.
var attrKeyMap = map[string]string{
	"class": "styleClass",
	"for":   "htmlFor",
}

// Generator produces imports and body text for one authored component.
type Generator struct {
	Registry     registry.Registry
	SharedModule string
	// OwnSymbol is the symbol of the component being authored. Nodes that
	// resolve to it are never emitted as construction calls; their children
	// are spliced in place, which is what stops the live preview's
	// self-nesting from compounding into the source.
	OwnSymbol string
	// SourceDir is the directory of the authored file; local import paths
	// are expressed relative to it.
	SourceDir string
}

// Result is one generation pass.
type Result struct {
	Imports []string
	Body    string
	// Skipped lists tags the registry could not resolve. Their subtrees are
	// omitted from the body; generation itself carries on.
	Skipped []string
}

// importSet accumulates import requirements during a pass, deduplicated,
// in first-use order.
type importSet struct {
	sharedSymbols []string
	sharedSeen    map[string]bool
	localPaths    []string
	localSymbols  map[string][]string
	localSeen     map[string]bool
}

func newImportSet() *importSet {
	return &importSet{
		sharedSeen:   make(map[string]bool),
		localSymbols: make(map[string][]string),
		localSeen:    make(map[string]bool),
	}
}

func (s *importSet) add(o registry.Origin) {
	switch o.Kind {
	case registry.OriginLocal:
		key := o.Path + "\x00" + o.Symbol
		if s.localSeen[key] {
			return
		}
		s.localSeen[key] = true
		if _, ok := s.localSymbols[o.Path]; !ok {
			s.localPaths = append(s.localPaths, o.Path)
		}
		s.localSymbols[o.Path] = append(s.localSymbols[o.Path], o.Symbol)
	default:
		if s.sharedSeen[o.Symbol] {
			return
		}
		s.sharedSeen[o.Symbol] = true
		s.sharedSymbols = append(s.sharedSymbols, o.Symbol)
	}
}

// Generate walks the snapshot forest and emits imports plus the
// construction body. Unresolved tags are skipped with a diagnostic; a
// partial body beats no body at all.
func (g *Generator) Generate(nodes []*snapshot.Node) Result {
	shared := g.SharedModule
	if shared == "" {
		shared = DefaultSharedModule
	}

	state := &genState{gen: g, imports: newImportSet()}
	var entries []string
	for _, n := range nodes {
		entries = append(entries, state.entriesFor(n, 1)...)
	}

	var body strings.Builder
	body.WriteString("[\n")
	body.WriteString(strings.Join(entries, ",\n"))
	if len(entries) > 0 {
		body.WriteString("\n")
	}
	body.WriteString("]")

	result := Result{
		Body:    body.String(),
		Skipped: state.skipped,
		Imports: g.renderImports(shared, state.imports),
	}
	logging.CodegenDebug("generated %d imports, %d skipped tags", len(result.Imports), len(result.Skipped))
	return result
}

type genState struct {
	gen     *Generator
	imports *importSet
	skipped []string
}

// entriesFor returns the construction-list entries a node contributes. One
// node usually yields one entry; a self-reference yields its children's
// entries spliced in place; an unresolved tag yields none.
func (s *genState) entriesFor(n *snapshot.Node, depth int) []string {
	if n.IsText() {
		return []string{indent(depth) + quoteJS(n.Content)}
	}

	origin, ok := s.gen.Registry.Resolve(n.Tag)
	if !ok {
		logging.Get(logging.CategoryCodegen).Warn("no registry entry for tag %q, node omitted", n.Tag)
		s.skipped = append(s.skipped, n.Tag)
		return nil
	}

	if origin.Symbol == s.gen.OwnSymbol && s.gen.OwnSymbol != "" {
		var spliced []string
		for _, c := range n.Children {
			spliced = append(spliced, s.entriesFor(c, depth)...)
		}
		return spliced
	}

	s.imports.add(origin)
	return []string{s.construction(n, origin.Symbol, depth)}
}

// construction renders one Symbol(args, children) call.
func (s *genState) construction(n *snapshot.Node, symbol string, depth int) string {
	args := buildArgs(n)

	var childEntries []string
	singleText := len(n.Children) == 1 && n.Children[0].IsText()
	if !singleText {
		for _, c := range n.Children {
			childEntries = append(childEntries, s.entriesFor(c, depth+1)...)
		}
	}

	var b strings.Builder
	b.WriteString(indent(depth))
	b.WriteString(symbol)
	b.WriteByte('(')

	wrote := false
	if args != "" {
		b.WriteString(args)
		wrote = true
	}

	switch {
	case singleText:
		// Exactly one text child collapses to a direct text argument.
		if wrote {
			b.WriteString(", ")
		}
		b.WriteString(quoteJS(n.Children[0].Content))
	case len(childEntries) > 0:
		if wrote {
			b.WriteString(", ")
		}
		b.WriteString("[\n")
		b.WriteString(strings.Join(childEntries, ",\n"))
		b.WriteString("\n")
		b.WriteString(indent(depth))
		b.WriteString("]")
	}

	b.WriteByte(')')
	return b.String()
}

// buildArgs renders the argument object from attributes plus, for custom
// elements only, runtime properties that attributes did not already cover.
func buildArgs(n *snapshot.Node) string {
	type arg struct{ key, value string }
	var args []arg
	present := make(map[string]bool)

	for _, a := range n.Attrs {
		key := a.Key
		if mapped, ok := attrKeyMap[key]; ok {
			key = mapped
		}
		if present[key] {
			continue
		}
		present[key] = true
		args = append(args, arg{key: key, value: a.Value})
	}

	if strings.Contains(n.Tag, "-") && len(n.Props) > 0 {
		keys := make([]string, 0, len(n.Props))
		for k := range n.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key := k
			if mapped, ok := attrKeyMap[key]; ok {
				key = mapped
			}
			if present[key] {
				continue
			}
			present[key] = true
			args = append(args, arg{key: key, value: n.Props[k]})
		}
	}

	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = jsKey(a.key) + ": " + quoteJS(a.value)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// renderImports emits the deduplicated import statements: one combined
// statement for the shared origin, one per distinct local origin path.
func (g *Generator) renderImports(shared string, set *importSet) []string {
	var out []string
	if len(set.sharedSymbols) > 0 {
		out = append(out, fmt.Sprintf("import { %s } from %s",
			strings.Join(set.sharedSymbols, ", "), quoteJS(shared)))
	}
	for _, p := range set.localPaths {
		out = append(out, fmt.Sprintf("import { %s } from %s",
			strings.Join(set.localSymbols[p], ", "), quoteJS(g.relativePath(p))))
	}
	return out
}

// relativePath converts a project-rooted local origin path into the
// normalized dot-prefixed relative form used in import statements.
func (g *Generator) relativePath(origin string) string {
	rel, err := filepath.Rel(g.SourceDir, origin)
	if err != nil {
		rel = origin
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// jsKey quotes an argument key when it is not a bare identifier.
func jsKey(key string) string {
	if identRe.MatchString(key) {
		return key
	}
	return quoteJS(key)
}

var jsEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// quoteJS renders a double-quoted JS string literal.
func quoteJS(s string) string {
	return `"` + jsEscaper.Replace(s) + `"`
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
