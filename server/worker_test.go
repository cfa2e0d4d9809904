package server

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWorker_Do(t *testing.T) {
	w := NewWorker(newTestProject())
	defer w.Stop()

	result, err := w.Do(func(p *Project) any {
		return p.KnownClasses()
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := strings.Join(result.([]string), ","); got != "Counter,Main" {
		t.Errorf("known classes = %q, want Counter,Main", got)
	}
}

func TestWorker_RecoversPanics(t *testing.T) {
	w := NewWorker(NewProject(0, nil))
	defer w.Stop()

	_, err := w.Do(func(p *Project) any {
		panic("boom")
	})
	if err == nil || err.Error() != "boom" {
		t.Errorf("Do error = %v, want boom", err)
	}

	// The worker keeps serving after a panic.
	if _, err := w.Do(func(p *Project) any { return nil }); err != nil {
		t.Errorf("Do after panic: %v", err)
	}
}

func TestWorker_Serializes(t *testing.T) {
	w := NewWorker(NewProject(0, nil))
	defer w.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('A' + i))
			w.Do(func(p *Project) any {
				return p.Update("file:///"+name+".jack", "class "+name+" {}")
			})
		}(i)
	}
	wg.Wait()

	result, _ := w.Do(func(p *Project) any { return len(p.KnownClasses()) })
	if result.(int) != 20 {
		t.Errorf("known classes = %v, want 20", result)
	}
}

func TestWorker_DoAfterStopNeverBlocks(t *testing.T) {
	w := NewWorker(NewProject(0, nil))
	w.Stop()

	done := make(chan int)
	go func() {
		failed := 0
		for i := 0; i < 200; i++ {
			if _, err := w.Do(func(p *Project) any { return nil }); err != nil {
				failed++
			}
		}
		done <- failed
	}()

	select {
	case failed := <-done:
		if failed != 200 {
			t.Errorf("%d of 200 calls after Stop failed, want all", failed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do blocked after Stop")
	}
}

func TestWorker_ConcurrentStop(t *testing.T) {
	w := NewWorker(NewProject(0, nil))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Stop()
		}()
	}
	wg.Wait()
}

func TestWorker_StopTwice(t *testing.T) {
	w := NewWorker(NewProject(0, nil))
	w.Stop()
	w.Stop()
	if _, err := w.Do(func(p *Project) any { return nil }); err == nil {
		t.Error("Do on a stopped worker should fail")
	}
}
