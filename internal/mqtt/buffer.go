package mqtt

import "log"

// queuedMsg is a serialized message held while the broker is unreachable.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox keeps the most recent messages up to a fixed capacity, oldest first.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type outbox struct {
	msgs []queuedMsg
	size int

	// start indexes the oldest message in msgs.
	start int

	// dropped counts messages lost since the last flush.
	dropped int
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{msgs: make([]queuedMsg, capacity)}
}

// add appends msg, evicting the oldest message when full.
func (o *outbox) add(msg queuedMsg) {
	n := len(o.msgs)
	if o.size < n {
		o.msgs[(o.start+o.size)%n] = msg
		o.size++
		return
	}
	if o.dropped == 0 {
		log.Printf("mqtt: outbox full (%d messages), dropping oldest", n)
	}
	o.dropped++
	o.msgs[o.start] = msg
	o.start = (o.start + 1) % n
}

// flush returns queued messages oldest first and empties the outbox.
func (o *outbox) flush() []queuedMsg {
	if o.size == 0 {
		return nil
	}
	n := len(o.msgs)
	out := make([]queuedMsg, 0, o.size)
	for i := 0; i < o.size; i++ {
		out = append(out, o.msgs[(o.start+i)%n])
	}
	o.start, o.size, o.dropped = 0, 0, 0
	return out
}

func (o *outbox) len() int {
	return o.size
}
