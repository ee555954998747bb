// Package trace emits Chrome-trace-format events (spec §1.[EXPANDED]
// ambient stack), activated by the global -ctracefile flag (given before the
// verb) to profile interpreter and backend lowering phases.
package trace

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"sync"
	"time"
)

var start = time.Now()

var (
	sinkMu sync.Mutex
	sink   io.Writer = ioutil.Discard
)

// Sink writes all following Event()s as a Chrome trace event file into w.
func Sink(w io.Writer) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	sink = w
	// Start the JSON Array Format; the trailing ] is optional, so we skip it.
	w.Write([]byte{'['})
}

// PendingEvent is a trace span opened by Event and closed by Done.
type PendingEvent struct {
	Name           string      `json:"name"`
	Categories     string      `json:"cat"`
	Type           string      `json:"ph"`
	ClockTimestamp uint64      `json:"ts"`
	Duration       uint64      `json:"dur"`
	Pid            uint64      `json:"pid"`
	Tid            uint64      `json:"tid"`
	Args           interface{} `json:"args"`

	start time.Time
}

// Done records the event's duration and writes it to the active sink.
func (pe *PendingEvent) Done() {
	pe.Duration = uint64(time.Since(pe.start) / time.Microsecond)
	b, err := json.Marshal(pe)
	if err != nil {
		panic(err)
	}
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if _, err := sink.Write(append(b, ',')); err != nil {
		log.Printf("[trace] %v", err)
	}
}

// Event opens a span named name on thread tid. Pipeline phases (lex, parse,
// interpret, lower, emit) are each one tid so Trace Viewer lays them out as
// parallel tracks even though the core itself runs single-threaded (§5).
func Event(name string, tid int) *PendingEvent {
	return &PendingEvent{
		Name:           name,
		Type:           "X",
		ClockTimestamp: uint64(time.Since(start) / time.Microsecond),
		Tid:            uint64(tid),
		start:          time.Now(),
	}
}

// Counter emits an instantaneous counter event, e.g. the number of targets
// materialized so far during graph construction.
func Counter(name string, pid uint64, args map[string]uint64) {
	ev := Event(name, 0)
	ev.Pid = pid
	ev.Type = "C"
	ev.Args = args
	ev.Done()
}
