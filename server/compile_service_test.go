package server

import (
	"path/filepath"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/chazu/jackc/cache"
	"github.com/chazu/jackc/compiler"
)

// ---------------------------------------------------------------------------
// Compile
// ---------------------------------------------------------------------------

func TestCompile_Success(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.Compile(bg(), "Main", `class Main { function void main() { do Output.printInt(1 + 2); return; } }`, "")
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	fields := resp.GetFields()
	if !fields["ok"].GetBoolValue() {
		t.Fatalf("Compile was not successful: %s", fields["error"].GetStringValue())
	}
	want := "function Main.main 0\npush constant 1\npush constant 2\nadd\ncall Output.printInt 1\npop temp 0\npush constant 0\nreturn\n"
	if got := fields["vm"].GetStringValue(); got != want {
		t.Errorf("vm =\n%s\nwant\n%s", got, want)
	}
	if got := fields["instructions"].GetNumberValue(); got != 8 {
		t.Errorf("instructions = %v, want 8", got)
	}
	if fields["class"].GetStringValue() != "Main" {
		t.Errorf("class = %q, want Main", fields["class"].GetStringValue())
	}
}

func TestCompile_OperatorOrder(t *testing.T) {
	client := newTestClient(t)
	src := `class Main { function int f() { return 1 - 2 - 3; } }`

	left, err := client.Compile(bg(), "Main", src, "left-to-right")
	if err != nil {
		t.Fatal(err)
	}
	deferred, err := client.Compile(bg(), "Main", src, "deferred")
	if err != nil {
		t.Fatal(err)
	}
	if left.GetFields()["vm"].GetStringValue() == deferred.GetFields()["vm"].GetStringValue() {
		t.Error("operator order did not change the output")
	}

	_, err = client.Compile(bg(), "Main", src, "sideways")
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("unknown order: code = %v, want InvalidArgument", connect.CodeOf(err))
	}
}

func TestCompile_ParseError(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.Compile(bg(), "Main", "class Main {\n  function void f() {\n    let x\n  }\n}", "")
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	fields := resp.GetFields()
	if fields["ok"].GetBoolValue() {
		t.Fatal("Compile succeeded on invalid source")
	}
	if msg := fields["error"].GetStringValue(); !strings.Contains(msg, "=") {
		t.Errorf("error = %q, want it to name the expected =", msg)
	}
	if fields["line"].GetNumberValue() != 4 {
		t.Errorf("line = %v, want 4", fields["line"].GetNumberValue())
	}
	if _, ok := fields["vm"]; ok {
		t.Error("failed compile returned vm output")
	}
}

func TestCompile_MissingSource(t *testing.T) {
	svc := NewCompileService(NewWorker(NewProject(0, nil)), compiler.OrderLeftToRight)
	defer svc.worker.Stop()

	_, err := svc.Compile(bg(), connectReq(map[string]any{"name": "Main"}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", connect.CodeOf(err))
	}
}

func TestCompile_KnownProjectClasses(t *testing.T) {
	dir := t.TempDir()
	counterPath := filepath.Join(dir, "Counter.jack")
	writeFile(t, counterPath, counterSource)

	client := newTestClient(t, WithFiles(counterPath))
	resp, err := client.Compile(bg(), "Main", mainSource, "")
	if err != nil {
		t.Fatal(err)
	}
	if w := resp.GetFields()["warnings"].GetListValue().GetValues(); len(w) != 0 {
		t.Errorf("warnings = %v, want none with Counter preloaded", w)
	}

	bare := newTestClient(t)
	resp, err = bare.Compile(bg(), "Main", mainSource, "")
	if err != nil {
		t.Fatal(err)
	}
	if w := resp.GetFields()["warnings"].GetListValue().GetValues(); len(w) != 1 {
		t.Errorf("warnings = %v, want the unknown Counter class", w)
	}
}

func TestCompile_Cache(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	client := newTestClient(t, WithCache(store))
	first, err := client.Compile(bg(), "Counter", counterSource, "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := client.Compile(bg(), "Counter", strings.ReplaceAll(counterSource, "\n", "\n\n"), "")
	if err != nil {
		t.Fatal(err)
	}
	if first.GetFields()["cached"].GetBoolValue() || !second.GetFields()["cached"].GetBoolValue() {
		t.Errorf("cached = %v then %v, want false then true",
			first.GetFields()["cached"].GetBoolValue(), second.GetFields()["cached"].GetBoolValue())
	}
	if first.GetFields()["vm"].GetStringValue() != second.GetFields()["vm"].GetStringValue() {
		t.Error("cached output differs")
	}
}

// ---------------------------------------------------------------------------
// Check and Format
// ---------------------------------------------------------------------------

func TestCheck(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.Check(bg(), `class A { function void f() { var int unused; return; } }`)
	if err != nil {
		t.Fatal(err)
	}
	fields := resp.GetFields()
	if !fields["ok"].GetBoolValue() {
		t.Error("warnings alone should not fail Check")
	}
	diags := fields["diagnostics"].GetListValue().GetValues()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want 1", diags)
	}
	d := diags[0].GetStructValue().GetFields()
	if d["severity"].GetStringValue() != "warning" || !strings.Contains(d["message"].GetStringValue(), "unused") {
		t.Errorf("diagnostic = %v", d)
	}

	resp, err = client.Check(bg(), `class A { function void f( }`)
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetFields()["ok"].GetBoolValue() {
		t.Error("Check accepted a parse error")
	}
}

func TestCheck_CodegenError(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.Check(bg(), "class Main {\n  function void main() {\n    let y = 1;\n    return;\n  }\n}")
	if err != nil {
		t.Fatal(err)
	}
	fields := resp.GetFields()
	if fields["ok"].GetBoolValue() {
		t.Error("Check accepted an undeclared variable")
	}
	diags := fields["diagnostics"].GetListValue().GetValues()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want 1", diags)
	}
	d := diags[0].GetStructValue().GetFields()
	if d["severity"].GetStringValue() != "error" || d["line"].GetNumberValue() != 3 {
		t.Errorf("diagnostic = %v, want an error on line 3", d)
	}
}

func TestFormat(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.Format(bg(), "class A{function void f(){return;}}")
	if err != nil {
		t.Fatal(err)
	}
	want := "class A {\n  function void f() {\n    return;\n  }\n}\n"
	if got := resp.GetFields()["source"].GetStringValue(); got != want {
		t.Errorf("source =\n%q\nwant\n%q", got, want)
	}

	resp, err = client.Format(bg(), "class {")
	if err != nil {
		t.Fatal(err)
	}
	if resp.GetFields()["ok"].GetBoolValue() {
		t.Error("Format accepted invalid source")
	}
}
