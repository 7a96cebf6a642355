package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// VertexClassifier classifies terms with a Gemini model on Vertex AI.
type VertexClassifier struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewVertexClassifier creates a classifier bound to projectID and region.
func NewVertexClassifier(ctx context.Context, projectID, region, modelName string) (*VertexClassifier, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("vertex classifier: project and region are required")
	}

	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ClassificationPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.1),
	}

	return &VertexClassifier{client: client, model: model, modelName: modelName}, nil
}

// Classify labels a batch of terms in one request.
func (v *VertexClassifier) Classify(ctx context.Context, terms []string) (map[string]string, error) {
	if len(terms) == 0 {
		return map[string]string{}, nil
	}

	resp, err := v.model.GenerateContent(ctx, genai.Text(strings.Join(terms, "\n")))
	if err != nil {
		return nil, wrapFatalError(fmt.Errorf("vertex generate: %w", err))
	}
	return ParseClassifications(responseText(resp))
}

// Close releases the underlying client.
func (v *VertexClassifier) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

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
