package pipeline

// deliveryState tracks a single notification through its lifecycle.
// Terminal states are stateDelivered and stateFailed.
type deliveryState string

const (
	statePending      deliveryState = "pending"
	stateFormatted    deliveryState = "formatted"
	stateAudioAttempt deliveryState = "audio_attempt"
	stateAudioSent    deliveryState = "audio_sent"
	stateAudioFailed  deliveryState = "audio_failed"
	stateTextFallback deliveryState = "text_fallback"
	stateTextOnly     deliveryState = "text_only"
	stateDelivered    deliveryState = "delivered"
	stateFailed       deliveryState = "failed"
)
