package nats

// Pub/Sub subjects
const (
	SubjectCheckoutCreated = "checkout.session.created"
)
