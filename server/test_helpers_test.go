package server

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

const counterSource = `class Counter {
  field int n;
  static int total;

  constructor Counter new(int start) {
    let n = start;
    return this;
  }

  method void inc() {
    let n = n + 1;
    let total = total + 1;
    return;
  }

  method int get() { return n; }
}
`

const mainSource = `class Main {
  function void main() {
    var Counter c;
    let c = Counter.new(3);
    do c.inc();
    do Output.printInt(c.get());
    return;
  }
}
`

const (
	counterURI = "file:///project/Counter.jack"
	mainURI    = "file:///project/Main.jack"
)

// newTestProject returns a project holding Counter and Main.
func newTestProject() *Project {
	p := NewProject(0, nil)
	p.Update(counterURI, counterSource)
	p.Update(mainURI, mainSource)
	return p
}

// newTestClient starts a Server on an httptest listener.
func newTestClient(t *testing.T, opts ...ServerOption) *Client {
	t.Helper()
	s := New(opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Stop()
	})
	return NewClient(ts.Client(), ts.URL)
}

func connectReq(fields map[string]any) *connect.Request[structpb.Struct] {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		panic(err)
	}
	return connect.NewRequest(msg)
}

func bg() context.Context {
	return context.Background()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
