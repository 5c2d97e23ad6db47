package ai

import (
	"context"

	"inbox-pilot/internal/model"
	"inbox-pilot/internal/service"
)

// MockAIClient is a mock implementation of AIClient for testing
type MockAIClient struct {
	ClassifyFunc     func(ctx context.Context, email model.Email) (*model.Classification, error)
	DraftReplyFunc   func(ctx context.Context, email model.Email, classification model.Classification, enrichment service.Enrichment, profile *model.VoiceProfile) (string, error)
	AnalyzeVoiceFunc func(ctx context.Context, samples []model.SentEmail) (*model.VoiceProfile, error)
}

func NewMockAIClient() *MockAIClient {
	return &MockAIClient{}
}

func (m *MockAIClient) Classify(ctx context.Context, email model.Email) (*model.Classification, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, email)
	}

	return &model.Classification{
		WorthReplying:  true,
		SenderPriority: model.PriorityNormal,
		Confidence:     0.9,
	}, nil
}

func (m *MockAIClient) DraftReply(ctx context.Context, email model.Email, classification model.Classification, enrichment service.Enrichment, profile *model.VoiceProfile) (string, error) {
	if m.DraftReplyFunc != nil {
		return m.DraftReplyFunc(ctx, email, classification, enrichment, profile)
	}

	return "Thanks, will take a look.", nil
}

func (m *MockAIClient) AnalyzeVoice(ctx context.Context, samples []model.SentEmail) (*model.VoiceProfile, error) {
	if m.AnalyzeVoiceFunc != nil {
		return m.AnalyzeVoiceFunc(ctx, samples)
	}

	return &model.VoiceProfile{
		Tone:        "direct and casual",
		SignOff:     "Thanks",
		SampleCount: len(samples),
	}, nil
}
