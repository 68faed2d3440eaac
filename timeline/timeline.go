// Package timeline implements the performance timeline: a buffer of
// performance entries with name/type filtering, observers notified
// through a queued task, user-timing marks and measures, and the
// resource-timing buffer limit with its full-event handling.
package timeline

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/gogpu/webdom"
)

// Entry is one record on the performance timeline. Times are
// milliseconds relative to the time origin.
type Entry struct {
	Name      string
	Type      string
	StartTime float64
	Duration  float64
}

// Entry type names used by the user-timing and resource-timing
// operations.
const (
	TypeMark     = "mark"
	TypeMeasure  = "measure"
	TypeResource = "resource"
)

// defaultResourceBufferSize is the initial resource-timing buffer
// limit.
const defaultResourceBufferSize = 250

// invalidMarkNames are the navigation-timing attribute names that may
// not be used as mark names.
var invalidMarkNames = []string{
	"navigationStart",
	"unloadEventStart",
	"unloadEventEnd",
	"redirectStart",
	"redirectEnd",
	"fetchStart",
	"domainLookupStart",
	"domainLookupEnd",
	"connectStart",
	"connectEnd",
	"secureConnectionStart",
	"requestStart",
	"responseStart",
	"responseEnd",
	"domLoading",
	"domInteractive",
	"domContentLoadedEventStart",
	"domContentLoadedEventEnd",
	"domComplete",
	"loadEventStart",
	"loadEventEnd",
}

// Observer receives batches of entries it registered interest in.
// Entries queue on the observer until the timeline's notification
// task runs.
type Observer struct {
	callback func([]Entry)
	types    []string
	queued   []Entry
}

// NewObserver creates an observer delivering batches to callback.
func NewObserver(callback func([]Entry)) *Observer {
	return &Observer{callback: callback}
}

// TakeRecords returns the entries queued on the observer and empties
// the queue.
func (o *Observer) TakeRecords() []Entry {
	records := o.queued
	o.queued = nil
	return records
}

func (o *Observer) notify() {
	records := o.TakeRecords()
	if len(records) > 0 && o.callback != nil {
		o.callback(records)
	}
}

// Performance owns the entry buffer and observer list for one global.
// Like the gpu package, it expects all calls from one logical
// execution context.
type Performance struct {
	entries   []Entry
	observers []*Observer

	pendingNotify bool
	schedule      func(func())

	origin time.Time
	now    func() float64

	resourceLimit       int
	resourceCount       int
	pendingFullEvent    bool
	secondaryResources  []Entry
	onResourceBufferFul func()
}

// NewPerformance creates a timeline whose clock starts now.
// scheduleTask queues the observer notification task on the
// surrounding event loop; pass nil to deliver notifications only
// through explicit NotifyObservers calls.
func NewPerformance(scheduleTask func(func())) *Performance {
	origin := time.Now()
	return &Performance{
		schedule:      scheduleTask,
		origin:        origin,
		now:           func() float64 { return float64(time.Since(origin)) / float64(time.Millisecond) },
		resourceLimit: defaultResourceBufferSize,
	}
}

// SetClock replaces the timeline clock. Intended for tests.
func (p *Performance) SetClock(now func() float64) {
	p.now = now
}

// OnResourceBufferFull registers the handler fired when the
// resource-timing buffer overflows.
func (p *Performance) OnResourceBufferFull(fn func()) {
	p.onResourceBufferFul = fn
}

// Now returns the current timeline time, reduced to the coarsest
// resolution the timeline exposes.
func (p *Performance) Now() float64 {
	return ReduceTimingResolution(p.now())
}

// TimeOrigin returns the timeline's zero point as milliseconds since
// the Unix epoch, at the exposed resolution.
func (p *Performance) TimeOrigin() float64 {
	return ReduceTimingResolution(float64(p.origin.UnixNano()) / float64(time.Millisecond))
}

// Entries returns every buffered entry sorted by start time.
func (p *Performance) Entries() []Entry {
	return p.entriesByNameAndType("", "")
}

// EntriesByType returns the buffered entries of the given type sorted
// by start time.
func (p *Performance) EntriesByType(entryType string) []Entry {
	return p.entriesByNameAndType("", entryType)
}

// EntriesByName returns the buffered entries with the given name,
// optionally restricted to entryType (empty for any), sorted by start
// time.
func (p *Performance) EntriesByName(name, entryType string) []Entry {
	return p.entriesByNameAndType(name, entryType)
}

// entriesByNameAndType filters the buffer; empty name or type matches
// everything.
func (p *Performance) entriesByNameAndType(name, entryType string) []Entry {
	var res []Entry
	for _, e := range p.entries {
		if (name == "" || e.Name == name) && (entryType == "" || e.Type == entryType) {
			res = append(res, e)
		}
	}
	slices.SortStableFunc(res, func(a, b Entry) int {
		switch {
		case a.StartTime < b.StartTime:
			return -1
		case a.StartTime > b.StartTime:
			return 1
		default:
			return 0
		}
	})
	return res
}

// clearEntriesByNameAndType drops buffered entries matching both
// filters; empty name matches every name.
func (p *Performance) clearEntriesByNameAndType(name, entryType string) {
	p.entries = slices.DeleteFunc(p.entries, func(e Entry) bool {
		return (name == "" || e.Name == name) && (entryType == "" || e.Type == entryType)
	})
}

// lastStartTimeByName returns the start time of the most recent entry
// of the given type and name, or 0 if none exists.
func (p *Performance) lastStartTimeByName(entryType, name string) float64 {
	for i := len(p.entries) - 1; i >= 0; i-- {
		if p.entries[i].Type == entryType && p.entries[i].Name == name {
			return p.entries[i].StartTime
		}
	}
	return 0
}

// Observe registers (or re-registers) an observer for the given entry
// types, replacing any previous registration.
func (p *Performance) Observe(o *Observer, entryTypes ...string) {
	for _, reg := range p.observers {
		if reg == o {
			reg.types = entryTypes
			return
		}
	}
	o.types = entryTypes
	p.observers = append(p.observers, o)
}

// ObserveBuffered registers an observer for a single entry type. With
// buffered set, entries of that type already in the buffer are queued
// on the observer immediately and a notification task is scheduled.
func (p *Performance) ObserveBuffered(o *Observer, entryType string, buffered bool) {
	if buffered {
		existing := p.entriesByNameAndType("", entryType)
		o.queued = append(o.queued, existing...)
		if len(existing) > 0 {
			p.queueNotifyTask()
		}
	}
	for _, reg := range p.observers {
		if reg == o {
			if !slices.Contains(reg.types, entryType) {
				reg.types = append(reg.types, entryType)
			}
			return
		}
	}
	o.types = []string{entryType}
	p.observers = append(p.observers, o)
}

// Unobserve removes an observer.
func (p *Performance) Unobserve(o *Observer) {
	p.observers = slices.DeleteFunc(p.observers, func(reg *Observer) bool {
		return reg == o
	})
}

// QueueEntry adds an entry to the timeline: interested observers get
// it queued, the buffer grows, and a single notification task is
// scheduled. Returns the entry's buffer index, or -1 when the entry
// was diverted (resource entries over the buffer limit) or when a
// notification task was already pending.
func (p *Performance) QueueEntry(e Entry) int {
	if e.Type == TypeResource && !p.shouldQueueResourceEntry(e) {
		return -1
	}
	return p.addEntry(e)
}

// addEntry fans the entry out to interested observers, appends it to
// the buffer and schedules the notification task.
func (p *Performance) addEntry(e Entry) int {
	for _, o := range p.observers {
		if slices.Contains(o.types, e.Type) {
			o.queued = append(o.queued, e)
		}
	}

	p.entries = append(p.entries, e)
	index := len(p.entries) - 1

	if p.pendingNotify {
		return -1
	}
	p.queueNotifyTask()
	return index
}

// NotifyObservers runs the observer notification task: every observer
// with queued records receives them. Observers registered during a
// callback wait for the next task.
func (p *Performance) NotifyObservers() {
	p.pendingNotify = false
	observers := slices.Clone(p.observers)
	for _, o := range observers {
		o.notify()
	}
}

func (p *Performance) queueNotifyTask() {
	if p.pendingNotify {
		return
	}
	p.pendingNotify = true
	if p.schedule != nil {
		p.schedule(p.NotifyObservers)
	}
}

// Mark records a user-timing mark at the current time. Reserved
// navigation-timing attribute names are rejected with a syntax-class
// error.
func (p *Performance) Mark(name string) error {
	if slices.Contains(invalidMarkNames, name) {
		return fmt.Errorf("%w: %q is a reserved mark name", webdom.ErrSyntax, name)
	}
	p.QueueEntry(Entry{Name: name, Type: TypeMark, StartTime: p.now()})
	return nil
}

// ClearMarks drops marks with the given name, or every mark when name
// is empty.
func (p *Performance) ClearMarks(name string) {
	p.clearEntriesByNameAndType(name, TypeMark)
}

// Measure records a user-timing measure between two marks. An empty
// startMark means the time origin; an empty endMark means now. A mark
// name with no recorded mark measures from/to 0.
func (p *Performance) Measure(name, startMark, endMark string) {
	endTime := p.now()
	if endMark != "" {
		endTime = p.lastStartTimeByName(TypeMark, endMark)
	}
	startTime := 0.0
	if startMark != "" {
		startTime = p.lastStartTimeByName(TypeMark, startMark)
	}
	p.QueueEntry(Entry{
		Name:      name,
		Type:      TypeMeasure,
		StartTime: startTime,
		Duration:  endTime - startTime,
	})
}

// ClearMeasures drops measures with the given name, or every measure
// when name is empty.
func (p *Performance) ClearMeasures(name string) {
	p.clearEntriesByNameAndType(name, TypeMeasure)
}

// ClearResourceTimings empties the resource-timing portion of the
// buffer and resets its size accounting.
func (p *Performance) ClearResourceTimings() {
	p.clearEntriesByNameAndType("", TypeResource)
	p.resourceCount = 0
}

// SetResourceTimingBufferSize updates the resource-timing buffer
// limit. Entries already buffered stay.
func (p *Performance) SetResourceTimingBufferSize(maxSize int) {
	p.resourceLimit = maxSize
}

// ClearAndDisable empties the whole buffer and disables further
// resource-timing entries. Run when the owning pipeline exits.
func (p *Performance) ClearAndDisable() {
	p.entries = nil
	p.resourceLimit = 0
}

func (p *Performance) canAddResourceEntry() bool {
	return p.resourceCount <= p.resourceLimit
}

// shouldQueueResourceEntry applies the resource-timing buffer limit:
// entries over the limit divert to a secondary queue until the
// buffer-full event handler makes room (or doesn't).
func (p *Performance) shouldQueueResourceEntry(e Entry) bool {
	if !p.pendingFullEvent {
		if p.canAddResourceEntry() {
			p.resourceCount++
			return true
		}
		p.pendingFullEvent = true
		p.fireBufferFullEvent()
	}
	p.secondaryResources = append(p.secondaryResources, e)
	return false
}

// copySecondaryResourceBuffer moves diverted resource entries into the
// primary buffer while it has room. The move bypasses the admission
// gate: re-admitting through it while the full event is pending would
// divert the entry right back.
func (p *Performance) copySecondaryResourceBuffer() {
	for p.canAddResourceEntry() && len(p.secondaryResources) > 0 {
		e := p.secondaryResources[0]
		p.secondaryResources = p.secondaryResources[1:]
		p.resourceCount++
		p.addEntry(e)
	}
}

// fireBufferFullEvent repeatedly fires the buffer-full handler and
// drains the secondary queue until it empties or stops shrinking.
func (p *Performance) fireBufferFullEvent() {
	for len(p.secondaryResources) > 0 {
		before := len(p.secondaryResources)
		if !p.canAddResourceEntry() {
			if p.onResourceBufferFul != nil {
				p.onResourceBufferFul()
			}
		}
		p.copySecondaryResourceBuffer()
		if before <= len(p.secondaryResources) {
			p.secondaryResources = nil
			break
		}
	}
	p.pendingFullEvent = false
}

// ReduceTimingResolution coarsens a timestamp to 10 microseconds, the
// resolution the timeline exposes to avoid timing side channels.
func ReduceTimingResolution(exact float64) float64 {
	return math.Floor(exact*100.0) / 100.0
}
