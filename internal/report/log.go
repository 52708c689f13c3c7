package report

import "log"

// LogSink writes one diagnostic line per event.
type LogSink struct {
	Logger *log.Logger // nil uses the standard logger
}

// Report logs e.
func (s LogSink) Report(e Event) {
	printf := log.Printf
	if s.Logger != nil {
		printf = s.Logger.Printf
	}

	switch e.Type {
	case EventHeartbeat:
		printf("%s: cycle at x%d (index %d)", e.Task, e.Multiplier, e.SpeedIndex)
	case EventPress:
		printf("%s: pressed, speed index %d (x%d)", e.Task, e.SpeedIndex, e.Multiplier)
	case EventSample:
		printf("%s: ADC val %d (%.0f mV)", e.Task, e.Raw, e.Millivolts)
	case EventSampleError:
		printf("%s: ADC read error: %s", e.Task, e.Detail)
	case EventTaskState:
		printf("%s: task %s", e.Task, e.Detail)
	default:
		printf("%s: %s %s", e.Task, e.Type, e.Detail)
	}
}
