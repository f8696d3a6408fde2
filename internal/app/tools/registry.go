// Package tools runs model-requested function calls and returns their output.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/realtime-voice/internal/app/events"
	"github.com/dkeye/realtime-voice/internal/core"
	"github.com/dkeye/realtime-voice/internal/domain"
	"github.com/rs/zerolog/log"
)

// CallDoneEvent carries the final arguments of a function call.
const CallDoneEvent = "response.function_call_arguments.done"

const DefaultTimeout = 10 * time.Second

var (
	ErrDuplicateTool = errors.New("tool already registered")
	ErrUnknownTool   = errors.New("unknown tool")
)

// Func receives the raw JSON arguments chosen by the model.
type Func func(ctx context.Context, args json.RawMessage) (any, error)

type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON schema object.
	Parameters map[string]any
	Run        Func
}

// Sender is the part of a session the registry replies through.
type Sender interface {
	SendBatch(msgs ...any) error
}

type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	timeout time.Duration
}

func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{tools: make(map[string]Tool), timeout: timeout}
}

func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Run == nil {
		return domain.ErrToolNameEmpty
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Specs lists the registered tools in name order for the session request.
func (r *Registry) Specs() []domain.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]domain.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, domain.ToolSpec{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	slices.SortFunc(specs, func(a, b domain.ToolSpec) int { return strings.Compare(a.Name, b.Name) })
	return specs
}

type callDone struct {
	Name      string `json:"name"`
	CallID    string `json:"call_id"`
	Arguments string `json:"arguments"`
}

type outputItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

type createItem struct {
	Type string     `json:"type"`
	Item outputItem `json:"item"`
}

type createResponse struct {
	Type string `json:"type"`
}

// Call runs the named tool and encodes its result or error as the output string.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) string {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return errorOutput(fmt.Errorf("%w: %s", ErrUnknownTool, name))
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		return errorOutput(errors.New("arguments are not valid JSON"))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := t.Run(ctx, args)
	if err != nil {
		return errorOutput(err)
	}
	out, err := json.Marshal(res)
	if err != nil {
		return errorOutput(fmt.Errorf("encode result: %w", err))
	}
	return string(out)
}

func errorOutput(err error) string {
	out, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(out)
}

// Handle answers one call-done event through out.
func (r *Registry) Handle(ctx context.Context, evt events.Event, out Sender) error {
	var call callDone
	if err := evt.Decode(&call); err != nil {
		return fmt.Errorf("decode function call: %w", err)
	}
	logger := log.With().Str("module", "tools").Str("sid", string(evt.SessionID)).Str("tool", call.Name).Str("call_id", call.CallID).Logger()
	logger.Info().Msg("function call")

	output := r.Call(ctx, call.Name, json.RawMessage(call.Arguments))
	err := out.SendBatch(
		createItem{Type: "conversation.item.create", Item: outputItem{Type: "function_call_output", CallID: call.CallID, Output: output}},
		createResponse{Type: "response.create"},
	)
	if err != nil {
		logger.Warn().Err(err).Msg("function output not delivered")
		return err
	}
	return nil
}

// Bind subscribes the registry to em. lookup resolves the session a call
// came from; calls run off the dispatch goroutine.
func (r *Registry) Bind(ctx context.Context, em *events.Emitter, lookup func(core.SessionID) (Sender, bool)) (unsubscribe func()) {
	return em.On(CallDoneEvent, func(evt events.Event) {
		out, ok := lookup(evt.SessionID)
		if !ok {
			log.Warn().Str("module", "tools").Str("sid", string(evt.SessionID)).Msg("function call for unknown session dropped")
			return
		}
		go func() {
			if err := r.Handle(ctx, evt, out); err != nil {
				log.Warn().Str("module", "tools").Err(err).Msg("function call failed")
			}
		}()
	})
}
