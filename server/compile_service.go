package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/jackc/compiler"
)

// Procedure paths served by CompileService.
const (
	CompileServiceName = "jackc.v1.CompileService"
	CompileProcedure   = "/" + CompileServiceName + "/Compile"
	CheckProcedure     = "/" + CompileServiceName + "/Check"
	FormatProcedure    = "/" + CompileServiceName + "/Format"
)

// CompileService compiles, checks and formats Jack sources over Connect.
// Messages are google.protobuf.Struct values, so clients can speak JSON
// without generated stubs.
//
//	Compile {name, source, order?}  -> {ok, vm, class, instructions, cached, warnings[]} | {ok:false, error, line, column}
//	Check   {name?, source}         -> {ok, diagnostics[{severity, message, line, column}]}
//	Format  {source}                -> {ok, source} | {ok:false, error, line, column}
type CompileService struct {
	worker *Worker
	order  compiler.OperatorOrder
}

// NewCompileService creates a CompileService. order is used when a
// request does not name one.
func NewCompileService(worker *Worker, order compiler.OperatorOrder) *CompileService {
	return &CompileService{worker: worker, order: order}
}

// Handler returns the mount path and handler for the service.
func (s *CompileService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(CompileProcedure, connect.NewUnaryHandler(CompileProcedure, s.Compile, opts...))
	mux.Handle(CheckProcedure, connect.NewUnaryHandler(CheckProcedure, s.Check, opts...))
	mux.Handle(FormatProcedure, connect.NewUnaryHandler(FormatProcedure, s.Format, opts...))
	return "/" + CompileServiceName + "/", mux
}

// Compile compiles one class to VM code.
func (s *CompileService) Compile(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	source := stringField(req.Msg, "source")
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	name := stringField(req.Msg, "name")
	if name == "" {
		name = "Main"
	}
	order := s.order
	if o := stringField(req.Msg, "order"); o != "" {
		var err error
		if order, err = compiler.ParseOperatorOrder(o); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
	}

	result, err := s.worker.Do(func(p *Project) any {
		compiled, err := p.Compile(ctx, name, source, order)
		if err != nil {
			return err
		}
		return compiled
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if compileErr, ok := result.(error); ok {
		return newStructResponse(failure(compileErr))
	}

	compiled := result.(*Compiled)
	return newStructResponse(map[string]any{
		"ok":           true,
		"class":        compiled.Unit.Class.Name,
		"vm":           compiled.Unit.String(),
		"instructions": len(compiled.Unit.Instructions),
		"cached":       compiled.Cached,
		"warnings":     warningList(compiled.Warnings),
	})
}

// Check reports the compile errors and lint warnings of a source without
// returning its code.
func (s *CompileService) Check(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	source := stringField(req.Msg, "source")
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	result, err := s.worker.Do(func(p *Project) any {
		class, err := compiler.ParseString(source)
		if err != nil {
			return []any{diagnosticMap("error", err.Error(), positionOf(err))}
		}
		var diags []any
		if _, err := generate(class, s.order); err != nil {
			diags = append(diags, diagnosticMap("error", err.Error(), positionOf(err)))
		}
		for _, w := range compiler.Analyze(class, p.KnownClasses()...) {
			diags = append(diags, diagnosticMap("warning", w.Message, w.Pos))
		}
		return diags
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	diags, _ := result.([]any)
	ok := true
	for _, d := range diags {
		if d.(map[string]any)["severity"] == "error" {
			ok = false
		}
	}
	if diags == nil {
		diags = []any{}
	}
	return newStructResponse(map[string]any{"ok": ok, "diagnostics": diags})
}

// Format rewrites a source in canonical layout.
func (s *CompileService) Format(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	source := stringField(req.Msg, "source")
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	formatted, err := compiler.FormatSource(source)
	if err != nil {
		return newStructResponse(failure(err))
	}
	return newStructResponse(map[string]any{"ok": true, "source": formatted})
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client calls a remote CompileService.
type Client struct {
	compile *connect.Client[structpb.Struct, structpb.Struct]
	check   *connect.Client[structpb.Struct, structpb.Struct]
	format  *connect.Client[structpb.Struct, structpb.Struct]
}

// NewClient creates a client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	return &Client{
		compile: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+CompileProcedure, opts...),
		check:   connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+CheckProcedure, opts...),
		format:  connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+FormatProcedure, opts...),
	}
}

// Compile sends a Compile request. order may be empty.
func (c *Client) Compile(ctx context.Context, name, source, order string) (*structpb.Struct, error) {
	return c.call(ctx, c.compile, map[string]any{"name": name, "source": source, "order": order})
}

// Check sends a Check request.
func (c *Client) Check(ctx context.Context, source string) (*structpb.Struct, error) {
	return c.call(ctx, c.check, map[string]any{"source": source})
}

// Format sends a Format request.
func (c *Client) Format(ctx context.Context, source string) (*structpb.Struct, error) {
	return c.call(ctx, c.format, map[string]any{"source": source})
}

func (c *Client) call(ctx context.Context, client *connect.Client[structpb.Struct, structpb.Struct], fields map[string]any) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// ---------------------------------------------------------------------------
// Message helpers
// ---------------------------------------------------------------------------

func stringField(msg *structpb.Struct, name string) string {
	return msg.GetFields()[name].GetStringValue()
}

func newStructResponse(fields map[string]any) (*connect.Response[structpb.Struct], error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// failure describes a compile error, with its position when it has one.
func failure(err error) map[string]any {
	fields := map[string]any{"ok": false, "error": err.Error()}
	if pos, ok := compiler.ErrorPosition(err); ok {
		fields["line"] = pos.Line
		fields["column"] = pos.Column
	}
	var unitErr *compiler.UnitError
	if errors.As(err, &unitErr) {
		fields["error"] = unitErr.Err.Error()
	}
	return fields
}

func positionOf(err error) compiler.Position {
	pos, _ := compiler.ErrorPosition(err)
	return pos
}

func diagnosticMap(severity, message string, pos compiler.Position) map[string]any {
	return map[string]any{
		"severity": severity,
		"message":  message,
		"line":     pos.Line,
		"column":   pos.Column,
	}
}

func warningList(warnings []compiler.Warning) []any {
	list := make([]any, 0, len(warnings))
	for _, w := range warnings {
		list = append(list, w.String())
	}
	return list
}
