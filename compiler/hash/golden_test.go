package hash

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/jackc/compiler"
)

// TestGoldenFiles verifies that known classes produce expected hashes.
// If the golden files don't exist, they are created (first run).
// This prevents accidental format drift.
func TestGoldenFiles(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{
			name: "empty_class",
			src:  `class Empty { }`,
		},
		{
			name: "function_with_params",
			src:  `class M { function int add(int x, int y) { return x + y; } }`,
		},
		{
			name: "method_field_access",
			src:  `class P { field int x; method int getX() { return x; } }`,
		},
		{
			name: "static_call_and_string",
			src:  `class Main { function void main() { do Output.printString("hi"); return; } }`,
		},
		{
			name: "control_flow",
			src: `class L { function void f(Array a, int n) {
  var int i;
  while (i < n) { if (a[i] = 0) { let a[i] = 1; } else { let i = i + 1; } }
  return;
} }`,
		},
	}

	goldenDir := filepath.Join("testdata")
	if err := os.MkdirAll(goldenDir, 0o755); err != nil {
		t.Fatalf("create testdata dir: %v", err)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class, err := compiler.ParseString(tc.src)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}

			data := Serialize(Normalize(class.Tree))
			h := Sum(class.Tree)

			serializedHex := hex.EncodeToString(data)
			hashHex := hex.EncodeToString(h[:])

			goldenPath := filepath.Join(goldenDir, tc.name+".golden")
			expected, err := os.ReadFile(goldenPath)
			if err != nil {
				// First run: create golden file
				content := serializedHex + "\n" + hashHex + "\n"
				if writeErr := os.WriteFile(goldenPath, []byte(content), 0o644); writeErr != nil {
					t.Fatalf("write golden file: %v", writeErr)
				}
				t.Logf("created golden file: %s", goldenPath)
				return
			}

			lines := strings.Split(strings.TrimSpace(string(expected)), "\n")
			if len(lines) != 2 {
				t.Fatalf("golden file %s: expected 2 lines, got %d", goldenPath, len(lines))
			}

			if serializedHex != lines[0] {
				t.Errorf("serialized bytes mismatch:\n  got:  %s\n  want: %s", serializedHex, lines[0])
			}
			if hashHex != lines[1] {
				t.Errorf("hash mismatch:\n  got:  %s\n  want: %s", hashHex, lines[1])
			}
		})
	}
}
