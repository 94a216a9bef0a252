package assistant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const chatSystemPrompt = `You are CareSync's health assistant. You help patients with
their appointments, medicine orders and reminders. Use the provided tools to look up
the patient's own data when the question needs it. You are not a doctor: never
diagnose, and advise seeing a doctor for medical concerns. Keep answers short.`

const summarizePromptFmt = `Summarize the following medical document for a patient in
plain language. List any medications, dosages and follow-up instructions it mentions.

%s`

type Service struct {
	client   ModelClient
	registry *Registry
}

func NewService(client ModelClient, registry *Registry) *Service {
	return &Service{client: client, registry: registry}
}

// Chat answers one user message. The model may request at most one tool
// call; its result is fed back for the final answer.
func (s *Service) Chat(ctx context.Context, userID uuid.UUID, message string) (string, error) {
	messages := []Message{{Role: "user", Text: message}}
	req := GenerateRequest{
		System:   chatSystemPrompt,
		Messages: messages,
		Tools:    s.registry.Tools(),
	}
	resp, err := s.client.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.FunctionCall == nil {
		return resp.Text, nil
	}

	call := resp.FunctionCall
	result, err := s.registry.Call(ctx, userID, call.Name, call.Args)
	if err != nil {
		// Surface the failure to the model rather than the user; it can
		// apologize or rephrase.
		log.Warn().Err(err).Str("tool", call.Name).Msg("assistant tool call failed")
		result = map[string]string{"error": err.Error()}
	}

	messages = append(messages,
		Message{Role: "model", FunctionCall: call},
		Message{Role: "user", FunctionResponse: &FunctionResponse{Name: call.Name, Content: result}},
	)
	// The follow-up call declares no tools: one lookup per turn, and the
	// model cannot request another.
	final, err := s.client.Generate(ctx, GenerateRequest{
		System:   chatSystemPrompt,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if final.FunctionCall != nil {
		log.Warn().Str("tool", final.FunctionCall.Name).Msg("model requested a tool on a tool-free turn")
		return "I could only look one thing up for this question. Please ask again for anything else.", nil
	}
	return final.Text, nil
}

// Summarize produces a patient-friendly summary of record text.
func (s *Service) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("nothing to summarize")
	}
	resp, err := s.client.Generate(ctx, GenerateRequest{
		Messages: []Message{{Role: "user", Text: fmt.Sprintf(summarizePromptFmt, text)}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
