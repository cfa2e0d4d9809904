package server

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/jackc/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "jackc-lsp"

// LspServer answers editor requests from the project index. Every open
// document is parsed on change and its errors and lint warnings are
// published as diagnostics.
type LspServer struct {
	worker *Worker

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server. WithFiles preloads classes that are
// not open in the editor.
func NewLSP(opts ...ServerOption) *LspServer {
	s := &LspServer{
		worker:  newProjectWorker(newConfig(opts)),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("jackc LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.update(ctx, params.TextDocument.URI, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.worker.Do(func(p *Project) any {
		p.Remove(string(uri))
		return nil
	})

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	result, err := s.worker.Do(func(p *Project) any {
		return diagnostics(p.Update(string(uri), text))
	})
	if err != nil {
		log.Errorf("updating %s: %s", uri, err)
		return
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: result.([]protocol.Diagnostic),
	})
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := string(params.TextDocument.URI)
	pos := params.Position

	result, err := s.worker.Do(func(p *Project) any {
		doc, ok := p.Document(uri)
		if !ok {
			return []protocol.CompletionItem(nil)
		}
		return complete(p, doc, pos)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := string(params.TextDocument.URI)
	pos := params.Position

	result, err := s.worker.Do(func(p *Project) any {
		doc, ok := p.Document(uri)
		if !ok {
			return (*protocol.Hover)(nil)
		}
		return hover(p, doc, pos)
	})
	if err != nil {
		return nil, nil
	}
	return result.(*protocol.Hover), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := string(params.TextDocument.URI)
	pos := params.Position

	result, err := s.worker.Do(func(p *Project) any {
		doc, ok := p.Document(uri)
		if !ok {
			return []protocol.Location(nil)
		}
		return definition(p, doc, pos)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result, nil
}

// --- Project-backed logic (called on worker goroutine) ---

// diagnostics converts a document's parse error and lint warnings.
func diagnostics(doc *Document) []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}
	source := lspName

	if doc.Err != nil {
		severity := protocol.DiagnosticSeverityError
		pos, _ := compiler.ErrorPosition(doc.Err)
		diags = append(diags, protocol.Diagnostic{
			Range:    pointRange(pos, 1),
			Severity: &severity,
			Source:   &source,
			Message:  doc.Err.Error(),
		})
	}

	for _, w := range doc.Warnings {
		severity := protocol.DiagnosticSeverityWarning
		diags = append(diags, protocol.Diagnostic{
			Range:    pointRange(w.Pos, 1),
			Severity: &severity,
			Source:   &source,
			Message:  w.Message,
		})
	}
	return diags
}

var keywords = []string{
	"class", "constructor", "function", "method", "field", "static", "var",
	"int", "char", "boolean", "void", "true", "false", "null", "this",
	"let", "do", "if", "else", "while", "return",
}

var osClasses = []string{"Array", "Keyboard", "Math", "Memory", "Output", "Screen", "String", "Sys"}

func complete(p *Project, doc *Document, pos protocol.Position) []protocol.CompletionItem {
	prefix, receiver := extractPrefix(doc.Source, pos)
	lowerPrefix := strings.ToLower(prefix)

	var items []protocol.CompletionItem
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if !strings.HasPrefix(strings.ToLower(label), lowerPrefix) {
			return
		}
		labelCopy := label
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &labelCopy,
		})
	}

	// After "x." offer the subroutines of x's class
	if receiver != "" {
		className := receiver
		if doc.LastGood != nil {
			for _, sym := range visibleSymbols(doc.LastGood, pos) {
				if sym.Name == receiver {
					className = sym.Type
					break
				}
			}
		}
		if target := p.FindClass(className); target != nil {
			for _, sub := range target.Class.Subroutines {
				add(sub.Name, protocol.CompletionItemKindMethod, signature(target.Class.Name, sub))
			}
		}
		return items
	}

	if prefix == "" {
		return nil
	}

	for _, kw := range keywords {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}
	classes := append(append([]string{}, osClasses...), p.KnownClasses()...)
	sort.Strings(classes)
	for i, name := range classes {
		if i > 0 && classes[i-1] == name {
			continue
		}
		add(name, protocol.CompletionItemKindClass, "class")
	}
	if doc.LastGood != nil {
		for _, sym := range visibleSymbols(doc.LastGood, pos) {
			if sym.Name != "this" {
				add(sym.Name, protocol.CompletionItemKindVariable, sym.Kind.String()+" "+sym.Type)
			}
		}
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func hover(p *Project, doc *Document, pos protocol.Position) *protocol.Hover {
	if doc.Class == nil {
		return nil
	}
	ref, parent, idx := refAt(doc.Class.Tree, pos)
	if ref == nil {
		return nil
	}

	var b strings.Builder
	switch {
	case ref.Kind.IsVariable():
		seg, _ := ref.Kind.Segment()
		fmt.Fprintf(&b, "**%s** `%s`\n\n%s %d, stored in `%s %d`", ref.Name, ref.Type, ref.Kind, ref.Index, seg, ref.Index)

	case ref.Kind == compiler.KindClass:
		target := p.FindClass(ref.Name)
		if target == nil {
			fmt.Fprintf(&b, "**%s** (class)", ref.Name)
			break
		}
		cls := target.Class
		fmt.Fprintf(&b, "**class %s**\n\n%d fields, %d subroutines", cls.Name, cls.FieldCount(), len(cls.Subroutines))
		for _, sub := range cls.Subroutines {
			fmt.Fprintf(&b, "\n- `%s`", signature(cls.Name, sub))
		}

	case ref.Kind == compiler.KindSubroutine:
		className := calleeClass(doc.Class, parent, idx)
		target := p.FindClass(className)
		if target == nil {
			fmt.Fprintf(&b, "**%s.%s**", className, ref.Name)
			break
		}
		sub := findSubroutine(target.Class, ref.Name)
		if sub == nil {
			return nil
		}
		fmt.Fprintf(&b, "`%s`\n\n%d locals", signature(target.Class.Name, sub), sub.LocalCount())

	default:
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func definition(p *Project, doc *Document, pos protocol.Position) []protocol.Location {
	var ref *compiler.IdentifierRef
	var parent *compiler.Composite
	var idx int
	if doc.Class != nil {
		ref, parent, idx = refAt(doc.Class.Tree, pos)
	}
	if ref == nil {
		// The document may not parse; class names still resolve by text.
		if target := p.FindClass(extractWord(doc.Source, pos)); target != nil {
			return []protocol.Location{location(target.URI, target.Class.Tree.Child(1).(*compiler.IdentifierRef))}
		}
		return nil
	}

	switch {
	case ref.Kind.IsVariable():
		scope := doc.Class.Tree
		if ref.Kind == compiler.KindArgument || ref.Kind == compiler.KindLocal {
			for _, sub := range doc.Class.Subroutines {
				if contains(sub.Decl, ref) {
					scope = sub.Decl
				}
			}
		}
		var decl *compiler.IdentifierRef
		compiler.Walk(scope, func(n compiler.Node) bool {
			if r, ok := n.(*compiler.IdentifierRef); ok && r.Declared && r.Name == ref.Name && r.Kind == ref.Kind {
				decl = r
			}
			return decl == nil
		})
		if decl == nil {
			return nil // implicit this
		}
		return []protocol.Location{location(doc.URI, decl)}

	case ref.Kind == compiler.KindClass:
		target := p.FindClass(ref.Name)
		if target == nil {
			return nil
		}
		return []protocol.Location{location(target.URI, target.Class.Tree.Child(1).(*compiler.IdentifierRef))}

	case ref.Kind == compiler.KindSubroutine:
		target := p.FindClass(calleeClass(doc.Class, parent, idx))
		if target == nil {
			return nil
		}
		sub := findSubroutine(target.Class, ref.Name)
		if sub == nil {
			return nil
		}
		return []protocol.Location{location(target.URI, sub.Decl.Child(2).(*compiler.IdentifierRef))}
	}
	return nil
}

// --- Tree helpers ---

// refAt finds the identifier under an LSP position, with its parent and
// index in the parent's children.
func refAt(tree *compiler.Composite, pos protocol.Position) (*compiler.IdentifierRef, *compiler.Composite, int) {
	line, col := int(pos.Line)+1, int(pos.Character)+1

	var found *compiler.IdentifierRef
	var parent *compiler.Composite
	var index int
	compiler.Walk(tree, func(n compiler.Node) bool {
		comp, ok := n.(*compiler.Composite)
		if !ok || found != nil {
			return found == nil
		}
		for i, child := range comp.Children {
			ref, ok := child.(*compiler.IdentifierRef)
			if !ok || ref.At.Line != line {
				continue
			}
			if col >= ref.At.Column && col <= ref.At.Column+len(ref.Name) {
				found, parent, index = ref, comp, i
				return false
			}
		}
		return true
	})
	return found, parent, index
}

// calleeClass names the class whose subroutine is called at
// parent.Children[idx]: the receiver's class for x.f and C.f, the
// enclosing class otherwise.
func calleeClass(class *compiler.Class, parent *compiler.Composite, idx int) string {
	if idx >= 2 {
		if dot, ok := parent.Children[idx-1].(*compiler.Terminal); ok && dot.Is(compiler.TokenSymbol, ".") {
			if recv, ok := parent.Children[idx-2].(*compiler.IdentifierRef); ok {
				if recv.Kind.IsVariable() {
					return recv.Type
				}
				return recv.Name
			}
		}
	}
	return class.Name
}

// enclosingSubroutine returns the subroutine whose lines span pos.
func enclosingSubroutine(class *compiler.Class, pos protocol.Position) *compiler.Subroutine {
	line := int(pos.Line) + 1
	for _, sub := range class.Subroutines {
		closing := sub.Body.Child(sub.Body.Len() - 1)
		if sub.Decl.Pos().Line <= line && line <= closing.Pos().Line {
			return sub
		}
	}
	return nil
}

// visibleSymbols lists the variables in scope at pos: the enclosing
// subroutine's arguments and locals, then the statics and fields they do
// not shadow.
func visibleSymbols(class *compiler.Class, pos protocol.Position) []compiler.Symbol {
	var syms []compiler.Symbol
	shadowed := make(map[string]bool)
	if sub := enclosingSubroutine(class, pos); sub != nil {
		for _, sym := range sub.Scope.Symbols() {
			syms = append(syms, sym)
			shadowed[sym.Name] = true
		}
	}
	for _, sym := range class.Scope.Symbols() {
		if !shadowed[sym.Name] {
			syms = append(syms, sym)
		}
	}
	return syms
}

func findSubroutine(class *compiler.Class, name string) *compiler.Subroutine {
	for _, sub := range class.Subroutines {
		if sub.Name == name {
			return sub
		}
	}
	return nil
}

func contains(tree compiler.Node, target compiler.Node) bool {
	found := false
	compiler.Walk(tree, func(n compiler.Node) bool {
		if n == target {
			found = true
		}
		return !found
	})
	return found
}

func signature(className string, sub *compiler.Subroutine) string {
	var params []string
	for _, sym := range sub.Scope.Symbols() {
		if sym.Kind == compiler.KindArgument && sym.Name != "this" {
			params = append(params, sym.Type+" "+sym.Name)
		}
	}
	return fmt.Sprintf("%s %s %s.%s(%s)", sub.Kind, sub.ReturnType, className, sub.Name, strings.Join(params, ", "))
}

func location(uri string, ref *compiler.IdentifierRef) protocol.Location {
	return protocol.Location{
		URI:   protocol.DocumentUri(uri),
		Range: pointRange(ref.At, len(ref.Name)),
	}
}

// pointRange converts a 1-based compiler position to an LSP range of
// width characters.
func pointRange(pos compiler.Position, width int) protocol.Range {
	line, col := pos.Line-1, pos.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col + width)},
	}
}

// --- Text extraction helpers ---

// extractPrefix returns the identifier fragment before the cursor and,
// when the fragment follows "name.", the receiver name.
func extractPrefix(text string, pos protocol.Position) (prefix, receiver string) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	prefix = line[start:col]

	if start > 0 && line[start-1] == '.' {
		end := start - 1
		rstart := end
		for rstart > 0 && isIdentChar(rune(line[rstart-1])) {
			rstart--
		}
		receiver = line[rstart:end]
	}
	return prefix, receiver
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentChar(rune(line[end])) {
		end++
	}
	return line[start:end]
}

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func boolPtr(b bool) *bool {
	return &b
}
