package export

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwebster45206/story-export/pkg/exporterr"
	"github.com/jwebster45206/story-export/pkg/render"
	"github.com/jwebster45206/story-export/pkg/templates"
)

// LanguageKey is a localizable text registered during a pass
type LanguageKey struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// LanguageKeys collects the language keys generated by one pass. The same text
// always gets the same key.
type LanguageKeys struct {
	mu     sync.Mutex
	keys   []LanguageKey
	byText map[string]int
}

func NewLanguageKeys() *LanguageKeys {
	return &LanguageKeys{byText: make(map[string]int)}
}

// Register returns the key of text, creating it on first use
func (k *LanguageKeys) Register(text string) LanguageKey {
	k.mu.Lock()
	defer k.mu.Unlock()
	if i, ok := k.byText[text]; ok {
		return k.keys[i]
	}
	key := LanguageKey{Key: fmt.Sprintf("Text_%d", len(k.keys)+1), Text: text}
	k.byText[text] = len(k.keys)
	k.keys = append(k.keys, key)
	return key
}

// All returns the keys in registration order
func (k *LanguageKeys) All() []LanguageKey {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]LanguageKey(nil), k.keys...)
}

func (k *LanguageKeys) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.keys)
}

// keyHook implements the langkey template function for one render call
type keyHook struct {
	pass   *Pass
	errors *exporterr.Collector
}

// LanguageKey registers text and renders the LanguageKey template referencing it
func (h *keyHook) LanguageKey(ctx context.Context, text string) (string, error) {
	key := h.pass.keys.Register(text)
	tmpl, err := h.pass.data.Template(ctx, h.pass.projectID, "", templates.LanguageKey)
	if err != nil {
		return "", err
	}
	out, err := render.Substitute(ctx, tmpl, key, render.Hooks{})
	if err != nil {
		h.errors.Add(exporterr.KindLanguageKeyFailed, text, err.Error())
		return key.Key, nil
	}
	return out, nil
}

// RenderLanguageFile renders every key registered in the pass through the
// project's LanguageFile template
func (p *Pass) RenderLanguageFile(ctx context.Context) (Result, error) {
	tmpl, err := p.data.Template(ctx, p.projectID, "", templates.LanguageFile)
	if err != nil {
		return Result{}, err
	}
	cfg, err := p.data.ProjectConfig(ctx, p.projectID)
	if err != nil {
		return Result{}, err
	}
	data := map[string]any{
		"Language":  cfg.LanguageFileLanguage,
		"Extension": cfg.LanguageFileExtension,
		"Keys":      p.keys.All(),
	}
	c := exporterr.New()
	text, err := p.substitute(ctx, tmpl, data, c, nil)
	if err != nil {
		return Result{}, err
	}
	return result(text, c), nil
}
