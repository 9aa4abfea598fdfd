package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/example/interview-scheduler/internal/interview"
)

const defaultGeminiModel = "gemini-2.5-flash"

const geminiInstruction = `You schedule job interviews. Reply with a JSON array only. Each element has
"start" and "end" as RFC3339 timestamps, "score" as an integer from 0 to 100 and
a short "reason". Never overlap a busy interval and keep every slot inside the window.`

// contentGenerator is satisfied by genai's Models service.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for suggestions and validates its answer
// against the request window and busy intervals.
type Gemini struct {
	models contentGenerator
	model  string
	limit  int
}

// NewGemini creates a Gemini oracle on the Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("oracle: gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: create genai client: %w", err)
	}
	return newGemini(client.Models, model), nil
}

func newGemini(models contentGenerator, model string) *Gemini {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{models: models, model: model, limit: 10}
}

// Model reports the configured model name.
func (g *Gemini) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Suggest implements Oracle.
func (g *Gemini) Suggest(ctx context.Context, request interview.SuggestionRequest) ([]interview.Suggestion, error) {
	if g == nil || g.models == nil {
		return nil, errors.New("oracle: gemini is not initialized")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: geminiInstruction}},
		},
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(request)), config)
	if err != nil {
		return nil, fmt.Errorf("oracle: generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, errors.New("oracle: gemini returned an empty response")
	}
	return parseSuggestions(text, request, g.limit)
}

func buildPrompt(request interview.SuggestionRequest) string {
	var b strings.Builder
	tz := request.Timezone
	if tz == "" {
		tz = "UTC"
	}
	fmt.Fprintf(&b, "Window: %s to %s\n", request.WindowStart.UTC().Format(time.RFC3339), request.WindowEnd.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Interview length: %d minutes\n", int(request.Duration/time.Minute))
	fmt.Fprintf(&b, "Employer timezone: %s, prefer weekday business hours there.\n", tz)
	if len(request.Busy) == 0 {
		b.WriteString("Busy: none\n")
	} else {
		b.WriteString("Busy:\n")
		for _, busy := range request.Busy {
			fmt.Fprintf(&b, "- %s to %s\n", busy.Start.UTC().Format(time.RFC3339), busy.End.UTC().Format(time.RFC3339))
		}
	}
	return b.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			builder.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(builder.String())
}

type geminiSuggestion struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Score  int       `json:"score"`
	Reason string    `json:"reason"`
}

// parseSuggestions decodes the model answer and drops entries that fall
// outside the window, are too short or collide with busy time.
func parseSuggestions(text string, request interview.SuggestionRequest, limit int) ([]interview.Suggestion, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw []geminiSuggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("oracle: decode gemini response: %w", err)
	}

	suggestions := make([]interview.Suggestion, 0, len(raw))
	for _, item := range raw {
		start, end := item.Start.UTC(), item.End.UTC()
		if !end.After(start) || end.Sub(start) < request.Duration {
			continue
		}
		if start.Before(request.WindowStart) || end.After(request.WindowEnd) {
			continue
		}
		if overlapsAny(interview.Interval{Start: start, End: end}, request.Busy) {
			continue
		}
		score := item.Score
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		suggestions = append(suggestions, interview.Suggestion{
			StartTime: start,
			EndTime:   start.Add(request.Duration),
			Score:     score,
			Reason:    strings.TrimSpace(item.Reason),
		})
	}
	return rank(suggestions, limit), nil
}
