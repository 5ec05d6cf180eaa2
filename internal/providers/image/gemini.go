package image

import (
	"context"
	"fmt"

	"shortshive/internal/domain"
	"shortshive/internal/providers/genai"
)

// GeminiGenerator adapts the Gemini REST client to Generator.
type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error) {
	assets, err := g.client.GenerateImages(ctx, genai.ImageRequest{
		Prompt:      req.Prompt,
		Expected:    len(req.Scenes),
		AspectRatio: req.AspectRatio,
		RequestID:   req.StoryID,
	})
	if err != nil {
		return GenerationResponse{}, fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}
	out := GenerationResponse{Images: make([]ImagePayload, 0, len(assets))}
	for _, asset := range assets {
		out.Images = append(out.Images, ImagePayload{Data: asset.Data, MimeType: asset.Format})
	}
	return out, nil
}

var _ Generator = (*GeminiGenerator)(nil)
