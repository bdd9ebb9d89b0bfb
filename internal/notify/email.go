package notify

type EmailKind string

const (
	EmailWelcome      EmailKind = "welcome"
	EmailCancellation EmailKind = "cancellation"
)

// EmailJob is the payload queued for asynchronous delivery. Kind selects the
// template on the consumer side.
type EmailJob struct {
	Kind EmailKind `json:"kind"`
	To   string    `json:"to"`
	Name string    `json:"name"`
}
