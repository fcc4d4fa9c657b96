package helpers

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Collects nested phase timings. A nil timer is valid and records nothing,
// so callers only allocate one when verbose logging is on.
type Timer struct {
	data  []timerData
	mutex sync.Mutex
}

type timerData struct {
	time  time.Time
	name  string
	isEnd bool
}

func (t *Timer) Begin(name string) {
	if t != nil {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		t.data = append(t.data, timerData{
			name: name,
			time: time.Now(),
		})
	}
}

func (t *Timer) End(name string) {
	if t != nil {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		t.data = append(t.data, timerData{
			name:  name,
			time:  time.Now(),
			isEnd: true,
		})
	}
}

func (t *Timer) Fork() *Timer {
	if t != nil {
		return &Timer{}
	}
	return nil
}

func (t *Timer) Join(other *Timer) {
	if t != nil && other != nil {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		t.data = append(t.data, other.data...)
	}
}

// Emits one debug entry per completed phase. Times may not nest
// hierarchically because forked timers run in parallel.
func (t *Timer) Log(log *zap.Logger) {
	if t == nil || log == nil {
		return
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var stack []timerData
	for _, item := range t.data {
		if !item.isEnd {
			stack = append(stack, item)
			continue
		}
		last := len(stack) - 1
		if last < 0 {
			panic("Internal error")
		}
		top := stack[last]
		stack = stack[:last]
		if item.name != top.name {
			panic("Internal error")
		}
		log.Debug("phase",
			zap.String("name", strings.Repeat("  ", len(stack))+top.name),
			zap.Duration("elapsed", item.time.Sub(top.time)))
	}
}
