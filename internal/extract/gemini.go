package extract

import (
	"context"
	"errors"
	"fmt"

	genai "google.golang.org/genai"
)

// GeminiExtractor calls the Gemini API directly with an API key.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates an extractor authenticated by apiKey.
func NewGeminiExtractor(ctx context.Context, apiKey, model string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &GeminiExtractor{client: c, model: model}, nil
}

func (g *GeminiExtractor) Extract(ctx context.Context, pdf []byte) (Fields, error) {
	content := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: UserPrompt},
				{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: pdf}},
			},
		},
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0),
	}
	res, err := g.client.Models.GenerateContent(ctx, g.model, content, cfg)
	if err != nil {
		return Fields{}, fmt.Errorf("gemini API call failed: %w", err)
	}
	return ParseResponse(res.Text())
}
