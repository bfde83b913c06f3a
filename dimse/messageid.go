package dimse

import "sync/atomic"

var lastMessageID uint32

// NewMessageID allocates a message ID unique within this process, for use as
// the MessageID field of a newly issued RQ. DIMSE message IDs are scoped to
// one association, but a process-wide counter is simpler and still unique.
func NewMessageID() MessageID {
	return MessageID(atomic.AddUint32(&lastMessageID, 1) & 0xffff)
}
