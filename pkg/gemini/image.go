package gemini

import (
	"context"

	"google.golang.org/genai"

	"github.com/vibelab/vibecard/pkg/vibe"
)

// GenerateImage renders cover art for the prompt, trying each configured
// model tier in order. Any failure on a tier — error or empty payload —
// falls through to the next tier with the same prompt and aspect ratio.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (vibe.Blob, error) {
	return generateTiered(ctx, c.cfg.ImageModels, func(ctx context.Context, model string) (vibe.Blob, error) {
		blob, err := c.generateImage(ctx, model, prompt)
		if err != nil {
			c.logger.Warn("image tier failed", "model", model, "error", err)
		}
		return blob, err
	})
}

// generateTiered runs gen against each model in order and returns the
// first success. The last tier's error is returned when all fail.
func generateTiered(ctx context.Context, models []string, gen func(ctx context.Context, model string) (vibe.Blob, error)) (vibe.Blob, error) {
	var lastErr error
	for _, model := range models {
		blob, err := gen(ctx, model)
		if err == nil {
			return blob, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &vibe.ProviderError{Op: "gemini: generate image", Message: "no image models configured"}
	}
	return vibe.Blob{}, lastErr
}

func (c *Client) generateImage(ctx context.Context, model, prompt string) (vibe.Blob, error) {
	resp, err := c.genai.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    c.cfg.AspectRatio,
	})
	if err != nil {
		return vibe.Blob{}, wrapErr("gemini: generate image", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
		len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return vibe.Blob{}, &vibe.ProviderError{Op: "gemini: generate image", Message: "no image payload in response"}
	}

	img := resp.GeneratedImages[0].Image
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return vibe.Blob{MIMEType: mime, Data: img.ImageBytes}, nil
}
