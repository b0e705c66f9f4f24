package renderer

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"text/template"

	"github.com/skosovsky/promptdepot"
	"github.com/skosovsky/promptdepot/internal/cast"
)

// Configuration keys understood by GoTemplate.
const (
	KeyDelims        = "delims"          // []string{left, right}
	KeyStrict        = "strict"          // bool
	KeyTokenCounter  = "token_counter"   // TokenCounter
	KeyCharsPerToken = "chars_per_token" // int, used when no token_counter is set
)

// Ensures the factories match promptdepot.RendererFactory.
var (
	_ promptdepot.RendererFactory = GoTemplate
	_ promptdepot.RendererFactory = Placeholder
)

type goTemplateRenderer struct {
	tpl    *template.Template
	refs   []varRef
	roots  []string
	strict bool
}

// GoTemplate compiles source as a text/template. The template sees the render
// variables as its root map and has the sprig functions plus truncate_chars
// and truncate_tokens.
//
// Without strict, root variables absent from the render context render as
// empty strings, including chained references such as .user.name and $.x.
// With strict, they fail with a *promptdepot.VariableError wrapping
// promptdepot.ErrMissingVariable.
func GoTemplate(source string, cfg promptdepot.RendererConfig) (promptdepot.Renderer, error) {
	left, right := "", ""
	if raw, ok := cfg[KeyDelims]; ok {
		delims, ok := cast.ToStringSlice(raw)
		if !ok || len(delims) != 2 || delims[0] == "" || delims[1] == "" {
			return nil, fmt.Errorf("%w: %s must be two non-empty strings, got %v", promptdepot.ErrInvalidArgument, KeyDelims, raw)
		}
		left, right = delims[0], delims[1]
	}
	strict, err := boolKey(cfg, KeyStrict)
	if err != nil {
		return nil, err
	}
	tc, err := tokenCounter(cfg)
	if err != nil {
		return nil, err
	}
	tpl := template.New("prompt").Delims(left, right).Funcs(funcMap(tc))
	if strict {
		tpl = tpl.Option("missingkey=error")
	}
	tpl, err = tpl.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", promptdepot.ErrTemplateSyntax, err)
	}
	refs := referencedPaths(tpl.Tree)
	return &goTemplateRenderer{tpl: tpl, refs: refs, roots: rootVars(refs), strict: strict}, nil
}

func (r *goTemplateRenderer) Render(ctx context.Context, vars map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data := maps.Clone(vars)
	if data == nil {
		data = make(map[string]any, len(r.roots))
	}
	var missing []varRef
	for _, name := range r.roots {
		if _, ok := data[name]; ok {
			continue
		}
		if r.strict {
			return "", &promptdepot.VariableError{Variable: name, Err: promptdepot.ErrMissingVariable}
		}
		for _, ref := range r.refs {
			if ref.path[0] == name {
				missing = append(missing, ref)
			}
		}
	}
	// Fresh per render: sprig's set mutates maps.
	maps.Copy(data, emptyValues(missing))
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %w", promptdepot.ErrTemplateRender, err)
	}
	return buf.String(), nil
}

func boolKey(cfg promptdepot.RendererConfig, key string) (bool, error) {
	raw, ok := cfg[key]
	if !ok {
		return false, nil
	}
	b, ok := cast.ToBool(raw)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a bool, got %T", promptdepot.ErrInvalidArgument, key, raw)
	}
	return b, nil
}

func tokenCounter(cfg promptdepot.RendererConfig) (TokenCounter, error) {
	if raw, ok := cfg[KeyTokenCounter]; ok {
		tc, ok := raw.(TokenCounter)
		if !ok {
			return nil, fmt.Errorf("%w: %s must implement TokenCounter, got %T", promptdepot.ErrInvalidArgument, KeyTokenCounter, raw)
		}
		return tc, nil
	}
	if raw, ok := cfg[KeyCharsPerToken]; ok {
		n, ok := cast.ToInt64(raw)
		if !ok || n <= 0 {
			return nil, fmt.Errorf("%w: %s must be a positive integer, got %v", promptdepot.ErrInvalidArgument, KeyCharsPerToken, raw)
		}
		return &CharFallbackCounter{CharsPerToken: int(n)}, nil
	}
	return &CharFallbackCounter{}, nil
}
