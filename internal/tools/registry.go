// Package tools exposes guarded operations as agent-callable tools. Every
// invocation passes through the execution gate.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
)

var ErrUnknownTool = errors.New("unknown tool")

// Tool is a guarded operation with a flat argument map.
type Tool interface {
	Name() string
	// Action builds the descriptor the intent token must cover.
	Action(args map[string]any) (models.ActionDescriptor, error)
	// Run performs the side effect. It is called at most once per token.
	Run(ctx context.Context, action models.ActionDescriptor) (string, error)
}

// Executor is satisfied by *service.Gate.
type Executor interface {
	Execute(ctx context.Context, call service.GuardedCall, op service.Operation) models.ExecutionResult
}

type Registry struct {
	gate  Executor
	log   *slog.Logger
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry(gate Executor, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{gate: gate, log: log.With("component", "tools"), tools: map[string]Tool{}}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[models.NormalizeActionName(t.Name())] = t
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for n := range r.tools {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Invoke runs tool name through the gate. An unknown tool is the only case
// reported as an error; every gate outcome is a Result.
func (r *Registry) Invoke(ctx context.Context, name string, identity models.IdentityContext, args map[string]any, token string) (Result, error) {
	r.mu.RLock()
	t, ok := r.tools[models.NormalizeActionName(name)]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	action, err := t.Action(args)
	if err != nil {
		r.log.WarnContext(ctx, "tool arguments rejected", "tool", t.Name(), "err", err)
		return Result{Class: ClassError, Outcome: models.OutcomeMalformed, Message: err.Error()}, nil
	}
	res := r.gate.Execute(ctx, service.GuardedCall{Action: action, Identity: identity, Token: token}, t.Run)
	msg := res.Output
	if !res.Outcome.Approved() {
		msg = res.Reason
	}
	return Result{Class: classify(res.Outcome), Outcome: res.Outcome, Message: msg}, nil
}
