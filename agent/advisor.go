// Package agent asks a Gemini model for a candidate list of actions.
//
// The proposal is untrusted: it is only a list of hold.Action that must go
// through hold.Validator before anything is shown as executable.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Generator generates content, *genai.Models implements it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Advisor turns a Snapshot into a Proposal.
type Advisor struct {
	Model    string
	Strategy string // the user's strategy rules, in plain text
	models   Generator
}

// New returns an Advisor using the Gemini API.
func New(ctx context.Context, apiKey, model, strategy string) (*Advisor, error) {
	if apiKey == "" {
		return nil, errors.New("no API key: set advisor.api_key or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing Gemini's client: %w", err)
	}
	return NewWith(client.Models, model, strategy), nil
}

// NewWith returns an Advisor using any Generator.
func NewWith(models Generator, model, strategy string) *Advisor {
	if model == "" {
		model = DefaultModel
	}
	return &Advisor{Model: model, Strategy: strategy, models: models}
}

// config returns the generation config: the rules and the strategy as system
// instruction, and a JSON response.
func (a *Advisor) config() *genai.GenerateContentConfig {
	temperature := float32(0.2)
	instruction := systemInstruction
	if s := strings.TrimSpace(a.Strategy); s != "" {
		instruction += "\n\nThe user's strategy:\n\n" + s
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		ResponseMIMEType:  "application/json",
		Temperature:       &temperature,
	}
}

// Advise sends the snapshot and parses the proposal.
func (a *Advisor) Advise(ctx context.Context, s Snapshot) (Proposal, error) {
	content, err := s.JSON()
	if err != nil {
		return Proposal{}, err
	}
	log.Debug().Str("model", a.Model).Int("bytes", len(content)).Msg("asking for advice")
	resp, err := a.models.GenerateContent(ctx, a.Model, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: string(content)}}},
	}, a.config())
	if err != nil {
		return Proposal{}, fmt.Errorf("advisory request failed: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return Proposal{}, err
	}
	return ParseProposal(text)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from the advisor")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", errors.New("empty response from the advisor")
	}
	return b.String(), nil
}
