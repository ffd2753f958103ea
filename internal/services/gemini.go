package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"

	"google.golang.org/api/option"

	"studybuddy-backend/internal/models"
)

// GeminiService wraps the text-completion capability. The rest of the system
// only depends on Generate and AnalyzeNotes.
type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.5)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Generate runs a single completion with the given instruction and user
// content and returns the text verbatim.
func (s *GeminiService) Generate(ctx context.Context, instruction, content string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	prompt := instruction + "\n\n" + content

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty response")
	}

	return text, nil
}

// AnalyzeNotes asks for a structured analysis of study notes. The model is
// told to return bare JSON; code fences and stray prose are stripped before
// parsing.
func (s *GeminiService) AnalyzeNotes(ctx context.Context, notes string) (*models.NotesAnalysis, error) {
	raw, err := s.Generate(ctx, InstructionFor("analysis"), "Analyze this study session:\n\n"+notes)
	if err != nil {
		return nil, err
	}

	raw = stripCodeFences(raw)

	var analysis models.NotesAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		// Try to extract the JSON object
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &analysis); err != nil {
			return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
		}
	}

	return &analysis, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
