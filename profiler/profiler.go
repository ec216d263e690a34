package profiler

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Profiler records the last duration of named scopes plus free-form
// counters. Safe for concurrent use.
type Profiler struct {
	mu         sync.Mutex
	Scopes     map[string]time.Duration
	Totals     map[string]time.Duration
	Calls      map[string]int
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string

	now func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		Totals:     make(map[string]time.Duration),
		Calls:      make(map[string]int),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
		now:        time.Now,
	}
}

func (p *Profiler) BeginScope(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.StartTimes[name] = p.now()
	// Keep insertion order for a stable report.
	for _, n := range p.Order {
		if n == name {
			return
		}
	}
	p.Order = append(p.Order, name)
}

func (p *Profiler) EndScope(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start, ok := p.StartTimes[name]
	if !ok {
		return
	}
	d := p.now().Sub(start)
	p.Scopes[name] = d
	p.Totals[name] += d
	p.Calls[name]++
	delete(p.StartTimes, name)
}

func (p *Profiler) SetCount(name string, count int) {
	p.mu.Lock()
	p.Counts[name] = count
	p.mu.Unlock()
}

func (p *Profiler) CallCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Calls[name]
}

func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	// Keep Order, reset times
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
	for k := range p.Totals {
		p.Totals[k] = 0
	}
	for k := range p.Calls {
		p.Calls[k] = 0
	}
}

func (p *Profiler) StatsString() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		last := float64(p.Scopes[name].Microseconds()) / 1000.0
		total := float64(p.Totals[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-28s: last %.3f ms  total %.3f ms  calls %d\n", name, last, total, p.Calls[name]))
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-28s: %d\n", k, p.Counts[k]))
	}

	return sb.String()
}
