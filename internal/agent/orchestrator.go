package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/observability"
)

// GenericErrorMessage is the only text a caller ever sees for a handler fault.
const GenericErrorMessage = "Sorry, I encountered an error while processing your request. Please try again."

// TimeoutDetail is the Response.Error value when the request deadline passed.
const TimeoutDetail = "timeout"

// errNilResponse marks a handler that returned neither a response nor an error.
var errNilResponse = errors.New("agent returned no response")

// Outcome labels for request metrics.
const (
	OutcomeSuccess         = "success"
	OutcomeReportedFailure = "reported_failure"
	OutcomeFault           = "fault"
	OutcomeTimeout         = "timeout"
)

// Notification describes a handler fault for the user-visible toast hook.
type Notification struct {
	Title          string
	Body           string
	ConversationID string
	AgentName      string
	CorrelationID  string
	Error          string
	Timestamp      time.Time
}

// Notifier surfaces faults outside the response path. Implementations must be
// safe for concurrent use; the orchestrator calls Notify from its own goroutine.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type correlationKey struct{}

// WithCorrelationID attaches a caller-chosen correlation id to ctx. The
// orchestrator logs it alongside every fault.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// Orchestrator is the single entry point gateways use: it owns the agent
// registry and conversation history, routes each utterance and converts
// every handler fault into a generic failure Response.
type Orchestrator struct {
	registry       *Registry
	convStore      ConversationStore
	notifier       Notifier                     // nil = no fault notifications
	obs            *observability.Observability // nil = observability disabled
	requestTimeout time.Duration                // 0 = no deadline
	logger         *slog.Logger
}

// NewOrchestrator creates an orchestrator with an empty registry and an
// in-memory conversation store.
func NewOrchestrator(logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry:  NewRegistry(logger),
		convStore: NewInMemoryConversationStore(),
		logger:    logger,
	}
}

// WithConversationStore replaces the default in-memory conversation store.
func (o *Orchestrator) WithConversationStore(store ConversationStore) *Orchestrator {
	o.convStore = store
	return o
}

// WithNotifier attaches the fault notification hook.
func (o *Orchestrator) WithNotifier(n Notifier) *Orchestrator {
	o.notifier = n
	return o
}

// WithObservability attaches metrics and tracing.
func (o *Orchestrator) WithObservability(obs *observability.Observability) *Orchestrator {
	o.obs = obs
	return o
}

// WithRequestTimeout bounds each ProcessRequest call. Zero disables the bound.
func (o *Orchestrator) WithRequestTimeout(d time.Duration) *Orchestrator {
	o.requestTimeout = d
	return o
}

// RegisterAgent adds a to the registry (last registration under a name wins).
func (o *Orchestrator) RegisterAgent(a Agent) {
	o.registry.Register(a)
}

// Agents returns the registered agents in registration order.
func (o *Orchestrator) Agents() []Agent {
	return o.registry.List()
}

// Ready returns ErrNoAgents until at least one agent is registered.
func (o *Orchestrator) Ready() error {
	if o.registry.Count() == 0 {
		return ErrNoAgents
	}
	return nil
}

// Conversations exposes the conversation store (read access for archiving).
func (o *Orchestrator) Conversations() ConversationStore {
	return o.convStore
}

// CreateNewConversation allocates a fresh, empty conversation.
func (o *Orchestrator) CreateNewConversation() string {
	id := o.convStore.CreateConversation()
	o.recordConversations()
	return id
}

// GetConversationMessages returns the bounded history of a conversation,
// oldest first. Unknown ids yield an empty slice.
func (o *Orchestrator) GetConversationMessages(conversationID string) []Message {
	return o.convStore.GetMessages(conversationID)
}

// ProcessRequest handles one utterance end to end and always returns a
// non-nil Response.
//
// The user turn is recorded before the handler runs. An agent turn is
// recorded only when the handler returns without fault; faults, panics and
// deadline expiry produce a generic failure and leave no agent message.
func (o *Orchestrator) ProcessRequest(ctx context.Context, utterance, explicitAgentName string, actx *Context) *Response {
	if o.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.requestTimeout)
		defer cancel()
	}

	local := Context{}
	if actx != nil {
		local = *actx
	}
	if local.ConversationID == "" {
		local.ConversationID = o.CreateNewConversation()
	}
	conversationID := local.ConversationID

	o.convStore.AppendMessage(conversationID, Message{
		ID:        uuid.New().String(),
		Content:   utterance,
		Timestamp: time.Now().UTC(),
		Sender:    SenderUser,
	})
	o.recordConversations()
	local.PreviousMessages = o.convStore.GetMessages(conversationID)

	tracer := o.obs.TracerOrNil().Tracer()
	ctx, span := tracer.Start(ctx, "agent.process_request",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()

	selected, rule, err := o.selectAgent(utterance, explicitAgentName, &local)
	if err != nil {
		// Only an empty registry gets here.
		return o.fail(ctx, span, conversationID, "", OutcomeFault, err)
	}
	name := selected.Name()
	span.SetAttributes(
		attribute.String("agent.name", name),
		attribute.String("route.rule", string(rule)),
	)

	start := time.Now()
	resp, err := o.invoke(ctx, selected, utterance, &local)
	o.observeHandle(name, time.Since(start))

	if err != nil {
		outcome := OutcomeFault
		if isDeadline(ctx, err) {
			outcome = OutcomeTimeout
		}
		return o.fail(ctx, span, conversationID, name, outcome, err)
	}

	outcome := OutcomeSuccess
	if !resp.Success {
		outcome = OutcomeReportedFailure
		if resp.Message == "" {
			resp.Message = GenericErrorMessage
		}
	}

	o.convStore.AppendMessage(conversationID, Message{
		ID:        uuid.New().String(),
		Content:   resp.Message,
		Timestamp: time.Now().UTC(),
		Sender:    SenderAgent,
		AgentName: name,
	})
	o.recordOutcome(name, outcome)

	o.logger.InfoContext(ctx, "request handled",
		slog.String("conversation_id", conversationID),
		slog.String("agent", name),
		slog.String("rule", string(rule)),
		slog.String("outcome", outcome),
		slog.Duration("duration", time.Since(start)),
	)
	return resp
}

// selectAgent honors a registered explicit agent name, otherwise routes.
func (o *Orchestrator) selectAgent(utterance, explicit string, actx *Context) (Agent, Rule, error) {
	if explicit != "" {
		if a, ok := o.registry.Get(explicit); ok {
			o.recordRoute(RuleExplicit, a.Name())
			return a, RuleExplicit, nil
		}
		o.logger.Warn("explicit agent not registered, routing instead",
			slog.String("agent", explicit),
		)
	}

	route, err := RouteUtterance(utterance, actx, o.registry)
	if err != nil {
		return nil, "", err
	}
	if route.Fallback {
		o.logger.Warn("preferred agent not registered, using fallback",
			slog.String("preferred", route.Preferred),
			slog.String("agent", route.Agent.Name()),
		)
	}
	o.recordRoute(route.Rule, route.Agent.Name())
	return route.Agent, route.Rule, nil
}

type handleResult struct {
	resp *Response
	err  error
}

// invoke runs Handle exactly once in its own goroutine so the caller can
// stop waiting when ctx ends. Panics become errors.
func (o *Orchestrator) invoke(ctx context.Context, a Agent, utterance string, actx *Context) (*Response, error) {
	done := make(chan handleResult, 1)
	go func() {
		var res handleResult
		defer func() {
			if r := recover(); r != nil {
				res = handleResult{err: fmt.Errorf("agent %s panicked: %v\n%s", a.Name(), r, debug.Stack())}
			}
			done <- res
		}()
		resp, err := a.Handle(ctx, utterance, actx)
		if err == nil && resp == nil {
			err = errNilResponse
		}
		res = handleResult{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil && ctx.Err() != nil {
			// Finished, but after the deadline: the caller has given up.
			return nil, ctx.Err()
		}
		return res.resp, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fail logs the full fault, notifies asynchronously and returns the generic
// failure Response.
func (o *Orchestrator) fail(ctx context.Context, span trace.Span, conversationID, agentName, outcome string, err error) *Response {
	detail := err.Error()
	if outcome == OutcomeTimeout {
		detail = TimeoutDetail
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, detail)

	correlationID := CorrelationID(ctx)
	o.logger.ErrorContext(ctx, "agent request failed",
		slog.String("conversation_id", conversationID),
		slog.String("agent", agentName),
		slog.String("correlation_id", correlationID),
		slog.String("outcome", outcome),
		slog.String("error", err.Error()),
	)
	o.recordOutcome(agentName, outcome)

	if o.notifier != nil {
		n := Notification{
			Title:          "Request failed",
			Body:           GenericErrorMessage,
			ConversationID: conversationID,
			AgentName:      agentName,
			CorrelationID:  correlationID,
			Error:          detail,
			Timestamp:      time.Now().UTC(),
		}
		// Detached from ctx: the request may already be cancelled.
		go o.notifier.Notify(context.WithoutCancel(ctx), n)
	}

	return &Response{
		Message: GenericErrorMessage,
		Success: false,
		Error:   detail,
	}
}

func isDeadline(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func (o *Orchestrator) metrics() *observability.MetricsCollector {
	return o.obs.MetricsOrNil()
}

func (o *Orchestrator) recordOutcome(agentName, outcome string) {
	if m := o.metrics(); m != nil {
		m.AgentRequestsTotal.WithLabelValues(agentName, outcome).Inc()
	}
}

func (o *Orchestrator) recordRoute(rule Rule, agentName string) {
	if m := o.metrics(); m != nil {
		m.RouteDecisionsTotal.WithLabelValues(string(rule), agentName).Inc()
	}
}

func (o *Orchestrator) observeHandle(agentName string, d time.Duration) {
	if m := o.metrics(); m != nil {
		m.AgentHandleDuration.WithLabelValues(agentName).Observe(d.Seconds())
	}
}

func (o *Orchestrator) recordConversations() {
	if m := o.metrics(); m != nil {
		m.Conversations.Set(float64(o.convStore.Count()))
	}
}
