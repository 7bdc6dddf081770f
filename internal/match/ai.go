package match

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"jobscout/scraper-service/internal/model"
)

const (
	// Job descriptions can run very long; everything past this point is
	// rarely about requirements.
	maxDescriptionChars = 3000

	aiTemperature = 0.3
	aiMaxTokens   = 1000
)

// Scorer produces a match verdict for one job against a candidate profile.
type Scorer interface {
	Score(ctx context.Context, profile model.Profile, job model.JobListing) (*model.MatchResult, error)
}

// AIScorer asks a chat-completion model for a structured verdict.
type AIScorer struct {
	client *openai.Client
	model  string
}

// NewAIScorer builds a scorer against an OpenAI-compatible endpoint.
func NewAIScorer(apiKey, baseURL, modelName string) *AIScorer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &AIScorer{client: openai.NewClientWithConfig(cfg), model: modelName}
}

func (s *AIScorer) Score(ctx context.Context, profile model.Profile, job model.JobListing) (*model.MatchResult, error) {
	desc := job.Description
	if len(desc) > maxDescriptionChars {
		desc = desc[:maxDescriptionChars]
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	prompt := fmt.Sprintf(`You are an expert recruiter. Compare the candidate profile below with the job posting and return ONLY a JSON object with these exact keys:
{"score": <0-100 integer>, "matching_skills": [...], "missing_skills": [...], "experience_fit": "weak"|"moderate"|"strong"|"excellent", "reasoning": "<one or two sentences>"}

Candidate profile:
%s

Job title: %s
Company: %s
Job description:
%s`, profileJSON, job.Title, job.Company, desc)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: aiTemperature,
		MaxTokens:   aiMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty response")
	}

	result, err := parseAIResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// aiVerdict mirrors the JSON the model is asked to produce. Pointer fields
// distinguish "absent" from zero values.
type aiVerdict struct {
	Score          *int     `json:"score"`
	MatchingSkills []string `json:"matching_skills"`
	MissingSkills  []string `json:"missing_skills"`
	ExperienceFit  *string  `json:"experience_fit"`
	Reasoning      string   `json:"reasoning"`
}

func parseAIResponse(content string) (*model.MatchResult, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var v aiVerdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return nil, fmt.Errorf("parse verdict: %w", err)
	}
	if v.Score == nil {
		return nil, fmt.Errorf("parse verdict: missing score")
	}
	if v.ExperienceFit == nil {
		return nil, fmt.Errorf("parse verdict: missing experience_fit")
	}
	switch *v.ExperienceFit {
	case model.FitWeak, model.FitModerate, model.FitStrong, model.FitExcellent:
	default:
		return nil, fmt.Errorf("parse verdict: unknown experience_fit %q", *v.ExperienceFit)
	}

	score := *v.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	matching := v.MatchingSkills
	if matching == nil {
		matching = []string{}
	}
	if len(matching) > 15 {
		matching = matching[:15]
	}
	missing := v.MissingSkills
	if missing == nil {
		missing = []string{}
	}

	return &model.MatchResult{
		Score:          score,
		MatchingSkills: matching,
		MissingSkills:  missing,
		ExperienceFit:  *v.ExperienceFit,
		Reasoning:      v.Reasoning,
		ComputedVia:    model.ViaAI,
	}, nil
}
