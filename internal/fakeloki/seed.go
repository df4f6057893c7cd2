package fakeloki

import (
	"context"
	"fmt"
	"time"
)

type sample struct {
	job   string
	level string
	line  string
}

var samples = []sample{
	{"api", "info", "GET /health 200 1ms"},
	{"api", "info", "GET /v1/orders 200 38ms"},
	{"api", "warn", "warn: slow upstream inventory 1.8s"},
	{"api", "error", "ERROR: upstream timeout after 5s (inventory)"},
	{"api", "info", "POST /v1/orders 201 112ms"},
	{"worker", "debug", "debug: picked job 4411 from queue default"},
	{"worker", "info", "job 4411 finished in 2.3s"},
	{"worker", "warn", "Warning: retrying job 4412 (attempt 2/5)"},
	{"worker", "error", "error: job 4412 failed: connection reset by peer"},
	{"varlogs", "info", "systemd[1]: Started Daily apt upgrade and clean activities."},
	{"varlogs", "info", "sshd[2210]: Accepted publickey for deploy from 10.0.0.7"},
	{"varlogs", "warn", "kernel: WARN disk /dev/sda1 at 91% capacity"},
}

func (sm sample) labels() map[string]string {
	return map[string]string{"job": sm.job, "level": sm.level, "host": "demo-1"}
}

// Seed fills st with count sample records spread evenly over the span
// ending at now.
func Seed(st *Store, now time.Time, span time.Duration, count int) {
	if count <= 0 {
		return
	}
	step := span / time.Duration(count)
	first := now.Add(-span)
	for i := range count {
		sm := samples[i%len(samples)]
		st.Push(Record{
			Ns:     first.Add(step * time.Duration(i+1)).UnixNano(),
			Labels: sm.labels(),
			Line:   fmt.Sprintf("%s seq=%d", sm.line, i),
		})
	}
}

// Generate pushes one sample record every interval until ctx is cancelled.
// It gives followers something to watch.
func Generate(ctx context.Context, st *Store, interval time.Duration, now func() time.Time) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm := samples[i%len(samples)]
			st.Push(Record{
				Ns:     now().UnixNano(),
				Labels: sm.labels(),
				Line:   fmt.Sprintf("%s live=%d", sm.line, i),
			})
		}
	}
}
