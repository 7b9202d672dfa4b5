// Package intercept runs intercepted API calls through an ordered chain of named stages before
// and after they reach the driver. Stages are added with Pipeline.Use and see every call the
// pipeline dispatches; each stage decides which call types it acts on and forwards the rest.
package intercept

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Call describes one intercepted API call: its inputs, and the outputs the driver and the
// stages fill in
type Call interface {
	CallName() string
}

// Next passes a call on to the rest of the pipeline
type Next func(call Call) error

// Interceptor is one pipeline stage. It may inspect or rewrite the call before and after
// passing it on, or return without calling next to stop the call from reaching the driver.
type Interceptor interface {
	Intercept(call Call, next Next) error
}

// InterceptorFunc adapts a function to the Interceptor interface
type InterceptorFunc func(call Call, next Next) error

func (f InterceptorFunc) Intercept(call Call, next Next) error {
	return f(call, next)
}

type stage struct {
	name        string
	interceptor Interceptor
}

// Pipeline is an ordered list of stages. The first stage added sees each call first and its
// results last.
type Pipeline struct {
	logger *slog.Logger
	stages []stage
}

func NewPipeline(logger *slog.Logger) *Pipeline {
	return &Pipeline{logger: logger}
}

// Use appends a stage. Stage names must be unique within a pipeline.
func (p *Pipeline) Use(name string, interceptor Interceptor) error {
	if interceptor == nil {
		return errors.Newf("interceptor %q is nil", name)
	}
	for _, existing := range p.stages {
		if existing.name == name {
			return errors.Newf("interceptor %q is already in the pipeline", name)
		}
	}

	p.stages = append(p.stages, stage{name: name, interceptor: interceptor})
	return nil
}

// Names lists the stages in the order they see calls
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.stages))
	for _, stage := range p.stages {
		names = append(names, stage.name)
	}
	return names
}

// Dispatch runs call through every stage and then terminal, which performs the real call
func (p *Pipeline) Dispatch(call Call, terminal Next) error {
	if terminal == nil {
		terminal = func(Call) error { return nil }
	}

	next := terminal
	for i := len(p.stages) - 1; i >= 0; i-- {
		stage := p.stages[i]
		inner := next
		next = func(call Call) error {
			return stage.interceptor.Intercept(call, inner)
		}
	}

	return next(call)
}
