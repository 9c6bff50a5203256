package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPoller struct {
	n   int32
	err error
}

func (p *countingPoller) Poll(ctx context.Context) error {
	atomic.AddInt32(&p.n, 1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	return p.err
}

func TestJobIntervalFloor(t *testing.T) {
	j := newRunJob("x", 10*time.Millisecond, func(context.Context) error { return nil })
	if j.interval != minInterval {
		t.Fatalf("interval = %s", j.interval)
	}
}

func TestExecuteSwallowsErrors(t *testing.T) {
	p := &countingPoller{err: errors.New("node down")}
	job := NewActivityIndexJob(p, time.Second)
	job.Execute()
	job.Execute()
	if n := atomic.LoadInt32(&p.n); n != 2 {
		t.Fatalf("runs = %d", n)
	}
	if job.GetName() != "activity_index" {
		t.Fatalf("name = %s", job.GetName())
	}
}

func TestManagerRunsJobs(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatal(err)
	}
	p := &countingPoller{}
	if err := m.Register(NewActivityIndexJob(p, time.Second)); err != nil {
		t.Fatal(err)
	}
	if got := m.Jobs(); len(got) != 1 || got[0] != "activity_index" {
		t.Fatalf("jobs = %v", got)
	}

	m.Start()
	defer m.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for atomic.LoadInt32(&p.n) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("job never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
