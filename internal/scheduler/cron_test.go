package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amaumene/aacfetch/internal/utils"
)

type fakeQueue struct {
	mu        sync.Mutex
	stuck     bool
	timeouts  []time.Duration
	cutoffs   []time.Time
	pruneErr  error
	pruneDone chan struct{}
}

func (q *fakeQueue) CancelStuck(timeout time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.timeouts = append(q.timeouts, timeout)
	return q.stuck
}

func (q *fakeQueue) Prune(cutoff time.Time) (int, error) {
	q.mu.Lock()
	q.cutoffs = append(q.cutoffs, cutoff)
	q.mu.Unlock()
	if q.pruneDone != nil {
		close(q.pruneDone)
	}
	return 2, q.pruneErr
}

func TestStuckDownloadCheckUsesTimeout(t *testing.T) {
	q := &fakeQueue{stuck: true}
	s := NewScheduler(q, 90, 7, utils.NewDiscardLogger())

	s.runStuckDownloadCheck()

	if len(q.timeouts) != 1 || q.timeouts[0] != 90*time.Minute {
		t.Errorf("timeouts = %v, want [1h30m0s]", q.timeouts)
	}
}

func TestStuckDownloadCheckDisabled(t *testing.T) {
	q := &fakeQueue{}
	s := NewScheduler(q, 0, 7, utils.NewDiscardLogger())

	s.runStuckDownloadCheck()

	if len(q.timeouts) != 0 {
		t.Errorf("CancelStuck called with timeout disabled")
	}
}

func TestPruneUsesRetention(t *testing.T) {
	q := &fakeQueue{pruneErr: errors.New("disk full")}
	s := NewScheduler(q, 120, 7, utils.NewDiscardLogger())

	before := time.Now()
	s.runPrune()

	if len(q.cutoffs) != 1 {
		t.Fatalf("Prune called %d times, want 1", len(q.cutoffs))
	}
	age := before.Sub(q.cutoffs[0])
	if age < 7*24*time.Hour-time.Minute || age > 7*24*time.Hour+time.Minute {
		t.Errorf("cutoff is %v old, want about 7 days", age)
	}
}

func TestPruneDisabled(t *testing.T) {
	q := &fakeQueue{}
	NewScheduler(q, 120, 0, utils.NewDiscardLogger()).runPrune()
	if len(q.cutoffs) != 0 {
		t.Error("Prune called with retention disabled")
	}
}

func TestStartRunsInitialPrune(t *testing.T) {
	q := &fakeQueue{pruneDone: make(chan struct{})}
	s := NewScheduler(q, 120, 7, utils.NewDiscardLogger())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	select {
	case <-q.pruneDone:
	case <-time.After(5 * time.Second):
		t.Fatal("initial prune did not run")
	}
}
