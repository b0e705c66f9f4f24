package renderer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/skosovsky/promptdepot"
	"github.com/skosovsky/promptdepot/internal/cast"
	"github.com/valyala/fasttemplate"
)

// Configuration keys understood by Placeholder (KeyStrict is shared).
const (
	KeyStartTag = "start_tag"
	KeyEndTag   = "end_tag"
)

type placeholderRenderer struct {
	tpl    *fasttemplate.Template
	strict bool
}

// Placeholder substitutes {{name}} tags with render variables. Whitespace
// inside a tag is ignored. String values are written as is, other values with
// fmt.Sprint. Missing variables render empty unless strict is set.
func Placeholder(source string, cfg promptdepot.RendererConfig) (promptdepot.Renderer, error) {
	start, err := stringKey(cfg, KeyStartTag, "{{")
	if err != nil {
		return nil, err
	}
	end, err := stringKey(cfg, KeyEndTag, "}}")
	if err != nil {
		return nil, err
	}
	strict, err := boolKey(cfg, KeyStrict)
	if err != nil {
		return nil, err
	}
	tpl, err := fasttemplate.NewTemplate(source, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", promptdepot.ErrTemplateSyntax, err)
	}
	return &placeholderRenderer{tpl: tpl, strict: strict}, nil
}

func (r *placeholderRenderer) Render(ctx context.Context, vars map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, err := r.tpl.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		name := strings.TrimSpace(tag)
		v, ok := vars[name]
		if !ok {
			if r.strict {
				return 0, &promptdepot.VariableError{Variable: name, Err: promptdepot.ErrMissingVariable}
			}
			return 0, nil
		}
		if s, ok := v.(string); ok {
			return io.WriteString(w, s)
		}
		return fmt.Fprint(w, v)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func stringKey(cfg promptdepot.RendererConfig, key, def string) (string, error) {
	raw, ok := cfg[key]
	if !ok {
		return def, nil
	}
	s, ok := cast.ToString(raw)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string, got %v", promptdepot.ErrInvalidArgument, key, raw)
	}
	return s, nil
}
