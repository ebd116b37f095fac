package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonLLMComplete    ReasonCode = "llm_complete"
	ReasonLLMFollowup    ReasonCode = "llm_followup"
	ReasonLLMRateLimit   ReasonCode = "llm_rate_limit"
	ReasonLLMCircuitOpen ReasonCode = "llm_circuit_open"

	ReasonToolExecute ReasonCode = "tool_execute"

	ReasonImageGenerate  ReasonCode = "image_generate"
	ReasonImageRateLimit ReasonCode = "image_rate_limit"

	ReasonSpeechConnect    ReasonCode = "speech_connect"
	ReasonSpeechSynthesize ReasonCode = "speech_synthesize"
	ReasonSpeechRateLimit  ReasonCode = "speech_rate_limit"

	ReasonTransportSend ReasonCode = "transport_send"
)
