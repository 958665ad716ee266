package extract

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/asodocumentflow/internal/gcp"
)

// VertexExtractor calls Gemini through Vertex AI using application default credentials.
type VertexExtractor struct {
	client *gcp.VertexClient
}

// NewVertexExtractor creates an extractor bound to the given project and region.
func NewVertexExtractor(ctx context.Context, projectID, region, model string) (*VertexExtractor, error) {
	client, err := gcp.NewVertexClient(ctx, projectID, region, model, SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return &VertexExtractor{client: client}, nil
}

func (v *VertexExtractor) Extract(ctx context.Context, pdf []byte) (Fields, error) {
	filePart := genai.Blob{
		MIMEType: "application/pdf",
		Data:     pdf,
	}
	resp, err := v.client.ExtractorModel.GenerateContent(ctx, filePart, genai.Text(UserPrompt))
	if err != nil {
		return Fields{}, fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return ParseResponse(responseText(resp))
}

func (v *VertexExtractor) Close() error {
	return v.client.Close()
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
