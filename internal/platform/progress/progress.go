package progress

import "time"

// EventKind discriminates progress events.
type EventKind string

const (
	KindStart    EventKind = "start"
	KindProgress EventKind = "progress"
	KindComplete EventKind = "complete"
	KindError    EventKind = "error"
)

// Event is one typed progress notification from a pipeline stage.
type Event struct {
	Kind     EventKind
	Stage    string
	Current  int
	Total    int
	Message  string
	Err      error
	Metadata map[string]any
	At       time.Time
}

// Broker is a fire-and-forget pub/sub channel for pipeline progress.
// Publishing never blocks: events for a subscriber whose buffer is full are
// dropped rather than stalling the pipeline.
type Broker struct {
	subs []chan Event
}

// NewBroker returns an empty broker. Subscribe before starting the pipeline;
// the broker is not safe for concurrent subscription during a run.
func NewBroker() *Broker {
	return &Broker{}
}

// Subscribe registers a buffered subscriber channel and returns it. The
// channel is closed by Close.
func (b *Broker) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Close closes every subscriber channel.
func (b *Broker) Close() {
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

func (b *Broker) publish(ev Event) {
	if b == nil {
		return
	}
	ev.At = time.Now()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than block the pipeline.
		}
	}
}

// Start announces a stage beginning with the expected unit count.
func (b *Broker) Start(stage string, total int, message string) {
	b.publish(Event{Kind: KindStart, Stage: stage, Total: total, Message: message})
}

// Progress reports one unit of completed work.
func (b *Broker) Progress(stage string, current, total int, message string, metadata map[string]any) {
	b.publish(Event{Kind: KindProgress, Stage: stage, Current: current, Total: total, Message: message, Metadata: metadata})
}

// Complete announces a finished stage.
func (b *Broker) Complete(stage, message string, metadata map[string]any) {
	b.publish(Event{Kind: KindComplete, Stage: stage, Message: message, Metadata: metadata})
}

// Error announces a stage failure.
func (b *Broker) Error(stage string, err error, message string) {
	b.publish(Event{Kind: KindError, Stage: stage, Err: err, Message: message})
}
