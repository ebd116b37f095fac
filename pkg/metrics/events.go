package metrics

// Event names recorded by the turn controller and provider decorators.
const (
	EventTurnStarted    = "turn_started"
	EventLLMCompleted   = "llm_completed"
	EventToolDispatched = "tool_dispatched"
	EventToolResult     = "tool_result"
	EventTurnAnswered   = "turn_answered"
	EventTurnFailed     = "turn_failed"

	EventImageGenerated  = "image_generated"
	EventSpeechGenerated = "speech_generated"

	EventRateLimit     = "rate_limit"
	EventBreakerDenied = "breaker_denied"
	EventBreakerOpen   = "breaker_open"
	EventBreakerClose  = "breaker_close"
)
