package chat

// Payload is what the broadcast channel carries: either one record or an
// ordered batch of records. Both shapes share the same "message" event.
type Payload interface {
	isPayload()
}

type Single struct {
	Message Message
}

type Batch struct {
	Messages []Message
}

func (Single) isPayload() {}
func (Batch) isPayload()  {}

// Normalize turns any payload into a sequence, the only shape the reconciler works with.
func Normalize(p Payload) []Message {
	switch v := p.(type) {
	case Single:
		return []Message{v.Message}
	case Batch:
		return v.Messages
	default:
		return nil
	}
}
