package turn

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jetwayhq/jetway/pkg/chat"
	"github.com/jetwayhq/jetway/pkg/errorsx"
	"github.com/jetwayhq/jetway/pkg/llm"
	"github.com/jetwayhq/jetway/pkg/logging"
	"github.com/jetwayhq/jetway/pkg/metrics"
	"github.com/jetwayhq/jetway/pkg/tools"
)

// ErrToolTimeout indicates a tool handler exceeded its execution timeout.
var ErrToolTimeout = errors.New("tool timeout")

const defaultToolTimeout = 10 * time.Second

// Outcome carries the user-facing result of a completed turn.
type Outcome struct {
	// Reply is the assistant's final text for this turn.
	Reply string
	// ArtifactCue is the value of the dispatched tool's cue field, when the
	// turn went through a tool and the field was present in the arguments.
	// Callers use it to trigger artifact generation (images, audio).
	ArtifactCue string
}

// Controller drives a single user turn: one completion, at most one tool
// round trip, then a follow-up completion with no tools offered. It never
// mutates the transcript it is given; callers adopt the returned slice only
// on success.
type Controller struct {
	provider    llm.Provider
	registry    *tools.Registry
	obs         metrics.Observer
	log         *slog.Logger
	toolTimeout time.Duration
}

// Option customizes a Controller.
type Option func(*Controller)

// WithObserver attaches a metrics observer to the controller.
func WithObserver(obs metrics.Observer) Option {
	return func(c *Controller) {
		if obs != nil {
			c.obs = obs
		}
	}
}

// WithLogger sets the controller's logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithToolTimeout bounds how long a single tool handler may run.
func WithToolTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.toolTimeout = d
		}
	}
}

// NewController builds a Controller around a chat provider and a tool
// registry. The registry may be empty; turns then always answer directly.
func NewController(provider llm.Provider, registry *tools.Registry, opts ...Option) *Controller {
	c := &Controller{
		provider:    provider,
		registry:    registry,
		obs:         metrics.NoopObserver{},
		log:         logging.NewComponentLogger(slog.Default(), "turn_controller"),
		toolTimeout: defaultToolTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleUserTurn runs one conversation turn. It appends the user turn to a
// copy of transcript, asks the provider for a completion with the registry's
// tool descriptions, and either returns the direct answer or dispatches the
// first requested tool call and asks for a follow-up answer with no tools.
//
// Tool-level failures (unknown tool, malformed arguments, handler errors,
// timeouts) never fail the turn: they are serialized as a JSON error payload
// in the tool turn so the model can explain the problem conversationally.
// Provider failures return a ProviderUnavailableError and a nil transcript;
// the input slice is left untouched.
func (c *Controller) HandleUserTurn(ctx context.Context, transcript []chat.Turn, userText string) ([]chat.Turn, Outcome, error) {
	sm := newStateMachine()
	turnID := uuid.NewString()
	tags := map[string]string{"turn_id": turnID, "provider": c.provider.Name()}

	turns := chat.CloneTurns(transcript)
	turns = append(turns, chat.NewUserTurn(userText))

	c.record(metrics.EventTurnStarted, 0, tags, map[string]any{"history_len": len(transcript)})
	started := time.Now()

	resp, err := c.provider.Complete(ctx, turns, c.registry.Describe())
	if err != nil {
		c.fail(sm, tags, "completion")
		return nil, Outcome{}, errorsx.Wrap(&ProviderUnavailableError{
			Provider: c.provider.Name(),
			Op:       "completion",
			Err:      err,
		}, errorsx.ReasonLLMComplete)
	}
	c.recordCompletion(tags, resp, time.Since(started))

	if !resp.IsToolRequest() {
		c.transition(sm, StateAnswered, "direct answer")
		turns = append(turns, chat.NewAssistantTurn(resp.Text))
		c.record(metrics.EventTurnAnswered, time.Since(started).Seconds(), tags, map[string]any{"tool_used": false})
		return turns, Outcome{Reply: resp.Text}, nil
	}

	// Only the first requested call is honored. The assistant turn records
	// just that call, so the transcript never carries a call without a
	// matching tool turn.
	call := resp.ToolCalls[0]
	if len(resp.ToolCalls) > 1 {
		c.log.Warn("extra_tool_calls_ignored",
			slog.String("turn_id", turnID),
			slog.String("tool", call.Name),
			slog.Int("ignored", len(resp.ToolCalls)-1),
		)
	}
	c.transition(sm, StateToolRequested, call.Name)
	turns = append(turns, chat.NewAssistantCallTurn(resp.Text, []chat.ToolCall{call}))

	c.transition(sm, StateDispatchingTool, call.Name)
	payload, cue := c.dispatch(ctx, turnID, tags, call)
	turns = append(turns, chat.NewToolTurn(call.ID, payload))

	c.transition(sm, StateAwaitingFollowup, call.Name)
	followupStart := time.Now()
	resp, err = c.provider.Complete(ctx, turns, nil)
	if err != nil {
		c.fail(sm, tags, "followup")
		return nil, Outcome{}, errorsx.Wrap(&ProviderUnavailableError{
			Provider: c.provider.Name(),
			Op:       "followup",
			Err:      err,
		}, errorsx.ReasonLLMFollowup)
	}
	c.recordCompletion(tags, resp, time.Since(followupStart))

	c.transition(sm, StateAnswered, "followup answer")
	turns = append(turns, chat.NewAssistantTurn(resp.Text))
	c.record(metrics.EventTurnAnswered, time.Since(started).Seconds(), tags, map[string]any{
		"tool_used": true,
		"tool":      call.Name,
	})
	return turns, Outcome{Reply: resp.Text, ArtifactCue: cue}, nil
}

// dispatch resolves and runs one tool call, returning the tool turn payload
// and the artifact cue. Failures are folded into the payload.
func (c *Controller) dispatch(ctx context.Context, turnID string, tags map[string]string, call chat.ToolCall) (string, string) {
	c.record(metrics.EventToolDispatched, 0, tags, map[string]any{"tool": call.Name})
	started := time.Now()

	spec, err := c.registry.Lookup(call.Name)
	if err != nil {
		c.recordToolResult(tags, call.Name, started, false)
		c.log.Warn("tool_lookup_failed", slog.String("turn_id", turnID), slog.String("tool", call.Name))
		return errorPayload(err), ""
	}

	args, err := parseArguments(call.Arguments)
	if err != nil {
		merr := &MalformedArgumentsError{Tool: call.Name, Err: err}
		c.recordToolResult(tags, call.Name, started, false)
		c.log.Warn("tool_arguments_malformed", slog.String("turn_id", turnID), slog.String("tool", call.Name))
		return errorPayload(merr), ""
	}

	cue := ""
	if spec.CueField != "" {
		if v, ok := args[spec.CueField].(string); ok {
			cue = v
		}
	}

	result, err := c.invoke(ctx, spec, args)
	if err != nil {
		xerr := errorsx.Wrap(&ToolExecutionError{Tool: call.Name, Err: err}, errorsx.ReasonToolExecute)
		c.recordToolResult(tags, call.Name, started, false)
		c.log.Error("tool_execution_failed",
			slog.String("turn_id", turnID),
			slog.String("tool", call.Name),
			slog.String("error", err.Error()),
		)
		return errorPayload(xerr), ""
	}

	c.recordToolResult(tags, call.Name, started, true)
	return resultPayload(result), cue
}

// invoke runs the handler in its own goroutine so a wedged tool cannot hold
// the turn past the configured timeout.
func (c *Controller) invoke(ctx context.Context, spec tools.Spec, args map[string]any) (map[string]any, error) {
	type invokeResult struct {
		out map[string]any
		err error
	}
	resCh := make(chan invokeResult, 1)
	go func() {
		out, err := spec.Handler(args)
		resCh <- invokeResult{out: out, err: err}
	}()

	select {
	case r := <-resCh:
		return r.out, r.err
	case <-time.After(c.toolTimeout):
		return nil, ErrToolTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Controller) fail(sm *stateMachine, tags map[string]string, op string) {
	c.transition(sm, StateFailed, op)
	c.record(metrics.EventTurnFailed, 0, tags, map[string]any{"op": op})
}

func (c *Controller) transition(sm *stateMachine, to State, reason string) {
	if err := sm.Transition(to, reason); err != nil {
		c.log.Error("turn_state_error", slog.String("error", err.Error()))
	}
}

func (c *Controller) record(name string, value float64, tags map[string]string, fields map[string]any) {
	c.obs.RecordEvent(metrics.NewEvent(name, value, tags, fields))
}

func (c *Controller) recordCompletion(tags map[string]string, resp llm.Response, elapsed time.Duration) {
	c.record(metrics.EventLLMCompleted, elapsed.Seconds(), tags, map[string]any{
		"finish_reason":     resp.FinishReason,
		"tool_calls":        len(resp.ToolCalls),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	})
}

func (c *Controller) recordToolResult(tags map[string]string, tool string, started time.Time, ok bool) {
	c.record(metrics.EventToolResult, time.Since(started).Seconds(), tags, map[string]any{
		"tool": tool,
		"ok":   ok,
	})
}

// parseArguments decodes a tool call's raw argument JSON. Empty arguments
// are treated as an empty object, matching what providers send for
// zero-parameter tools.
func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func errorPayload(err error) string {
	b, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		return `{"error":"tool dispatch failed"}`
	}
	return string(b)
}

func resultPayload(result map[string]any) string {
	if result == nil {
		result = map[string]any{}
	}
	b, err := json.Marshal(result)
	if err != nil {
		return errorPayload(err)
	}
	return string(b)
}
