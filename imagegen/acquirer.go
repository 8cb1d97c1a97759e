package imagegen

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"postgen/logger"
	"postgen/retry"
)

// Generator produces a remote image result for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Result, error)
}

// Renderer draws the local fallback image.
type Renderer interface {
	Render(topic, dest string) error
}

// Acquirer fetches a hero image for a topic and always leaves a file on disk
// unless even the placeholder renderer fails.
type Acquirer struct {
	gen        Generator
	renderer   Renderer
	policy     retry.Policy
	dir        string
	httpClient *http.Client
	log        *logger.Logger
}

// NewAcquirer wires an Acquirer. gen may be nil, in which case every image is
// a placeholder.
func NewAcquirer(gen Generator, renderer Renderer, policy retry.Policy, dir string, httpClient *http.Client, log *logger.Logger) (*Acquirer, error) {
	if renderer == nil {
		return nil, fmt.Errorf("placeholder renderer is required")
	}
	return &Acquirer{
		gen:        gen,
		renderer:   renderer,
		policy:     policy,
		dir:        dir,
		httpClient: httpClient,
		log:        logger.OrNop(log),
	}, nil
}

// Acquire writes an image for topic under the configured directory and
// returns its path. Remote failures of any kind fall back to the placeholder.
func (a *Acquirer) Acquire(ctx context.Context, topic, prompt string) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir %s: %w", a.dir, err)
	}
	dest := filepath.Join(a.dir, SafeFilename(topic))

	if res, ok := a.generate(ctx, prompt); ok {
		err := a.materialize(ctx, res, dest)
		if err == nil {
			return dest, nil
		}
		a.log.Error("failed to save generated image", "kind", res.Kind, "path", dest, "error", err)
	}

	if err := a.renderer.Render(topic, dest); err != nil {
		return "", fmt.Errorf("render placeholder image: %w", err)
	}
	a.log.Info("saved placeholder image", "path", dest)
	return dest, nil
}

func (a *Acquirer) generate(ctx context.Context, prompt string) (Result, bool) {
	if a.gen == nil {
		return Result{}, false
	}
	var res Result
	err := a.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		r, err := a.gen.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		res = r
		return nil
	}, func(attempt int, err error) {
		a.log.Warn("image generation attempt failed", "attempt", attempt, "error", err)
	})
	if err != nil {
		a.log.Warn("image generation unavailable, using placeholder", "error", err)
		return Result{}, false
	}
	return res, true
}

func (a *Acquirer) materialize(ctx context.Context, res Result, dest string) error {
	switch res.Kind {
	case KindURL:
		if err := Download(ctx, a.httpClient, res.Value, dest); err != nil {
			return err
		}
		a.log.Info("image downloaded", "path", dest)
	case KindBase64:
		if err := SaveBase64(res.Value, dest); err != nil {
			return err
		}
		a.log.Info("image saved (decoded base64)", "path", dest)
	default:
		return ErrUnexpectedSchema
	}
	return nil
}
