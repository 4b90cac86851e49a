package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwebster45206/story-export/pkg/templates"
)

var ErrUnknownEngine = errors.New("unknown rendering engine")

// LanguageKeyGenerator turns localizable text into a language key registered with the export pass
type LanguageKeyGenerator interface {
	LanguageKey(ctx context.Context, text string) (string, error)
}

// StepRenderer renders the code of the dialog step following the one being rendered
type StepRenderer interface {
	RenderNextStep(ctx context.Context) (string, error)
}

// HookError carries a failure returned by a template hook. It is not a problem of
// the template itself and ends the render of every enclosing template.
type HookError struct {
	Hook string
	Err  error
}

func (e *HookError) Error() string {
	return e.Hook + ": " + e.Err.Error()
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// HookFailure returns the hook failure err carries, or nil
func HookFailure(err error) error {
	var he *HookError
	if errors.As(err, &he) {
		return he.Err
	}
	return nil
}

// Hooks are optional callbacks a template may invoke. Nil hooks render as empty text.
type Hooks struct {
	LanguageKeys LanguageKeyGenerator
	Steps        StepRenderer
}

// Engine substitutes bound data into a template body
type Engine interface {
	Substitute(ctx context.Context, body string, data any, hooks Hooks) (string, error)
}

var engines = map[templates.Engine]Engine{
	templates.EngineLegacy:  Legacy{},
	templates.EngineGeneral: General{},
}

// For returns the engine matching a template's engine tag. An empty tag selects the general engine.
func For(tag templates.Engine) (Engine, error) {
	if tag == "" {
		tag = templates.EngineGeneral
	}
	e, ok := engines[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, tag)
	}
	return e, nil
}

// Substitute renders a stored template with the engine it declares
func Substitute(ctx context.Context, tmpl *templates.Template, data any, hooks Hooks) (string, error) {
	e, err := For(tmpl.Engine)
	if err != nil {
		return "", err
	}
	return e.Substitute(ctx, tmpl.Code, data, hooks)
}
