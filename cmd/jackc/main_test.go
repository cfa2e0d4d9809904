package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/jackc/manifest"
)

const mainJack = `class Main {
    function void main() {
        var int x;
        let x = 1 + 2;
        do Output.printInt(x);
        return;
    }
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunCompilesDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, "Main.jack"), mainJack)

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-xml", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}

	vm, err := os.ReadFile(filepath.Join(dir, "Main.vm"))
	if err != nil {
		t.Fatalf("reading Main.vm: %v", err)
	}
	if !strings.HasPrefix(string(vm), "function Main.main 1\n") {
		t.Errorf("Main.vm starts with %q", strings.SplitN(string(vm), "\n", 2)[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "Main.xml")); err != nil {
		t.Errorf("Main.xml not written: %v", err)
	}
	if !strings.Contains(stdout.String(), "compiled 1 units") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunReportsErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, "Main.jack"), mainJack)
	writeFile(t, filepath.Join(dir, "Broken.jack"), "class Broken {\n  function void f() {\n    let = 1;\n  }\n}\n")

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{dir}, &stdout, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Broken: line 3") {
		t.Errorf("stderr = %q, want the Broken unit's error", stderr.String())
	}
	// The healthy unit is still compiled.
	if _, err := os.Stat(filepath.Join(dir, "Main.vm")); err != nil {
		t.Errorf("Main.vm not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Broken.vm")); err == nil {
		t.Error("Broken.vm written for a unit that failed")
	}
}

func TestRunUsesManifest(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, manifest.FileName), `
[project]
name = "demo"

[output]
dir = "out"

[cache]
enabled = false
`)
	writeFile(t, filepath.Join(dir, "src", "Main.jack"), mainJack)

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "Main.vm")); err != nil {
		t.Errorf("out/Main.vm not written: %v", err)
	}
}

func TestRunBadOrder(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-order", "sideways", dir}, &stdout, &stderr); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRunFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Main.jack")
	writeFile(t, path, "class Main{function void main(){return;}}")

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-fmt", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "class Main {\n") {
		t.Errorf("formatted = %q", stdout.String())
	}
}

func TestWithManifest(t *testing.T) {
	m := &manifest.Manifest{
		Dir:      "/proj",
		Output:   manifest.Output{Dir: "build", XML: true},
		Compiler: manifest.Compiler{OperatorOrder: "deferred", Workers: 3},
	}
	o := options{order: "left-to-right", workers: 0}
	got := withManifest(o, m, map[string]bool{"order": true})

	if got.order != "left-to-right" {
		t.Errorf("order = %q, want the flag value left-to-right", got.order)
	}
	if got.workers != 3 {
		t.Errorf("workers = %d, want 3", got.workers)
	}
	if !got.xml || got.outDir != filepath.Join("/proj", "build") {
		t.Errorf("output = %q xml=%v", got.outDir, got.xml)
	}

	if same := withManifest(o, nil, nil); same != o {
		t.Errorf("withManifest(nil) = %+v, want %+v", same, o)
	}
}
