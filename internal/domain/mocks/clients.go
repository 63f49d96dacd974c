package mocks

import (
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/vericv/internal/domain"
)

// AIClient mocks domain.AIClient.
type AIClient struct{ mock.Mock }

func NewAIClient(t *testing.T) *AIClient {
	m := &AIClient{}
	cleanup(t, &m.Mock)
	return m
}

func (m *AIClient) Chat(ctx domain.Context, req domain.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// Transcriber mocks domain.Transcriber.
type Transcriber struct{ mock.Mock }

func NewTranscriber(t *testing.T) *Transcriber {
	m := &Transcriber{}
	cleanup(t, &m.Mock)
	return m
}

func (m *Transcriber) Transcribe(ctx domain.Context, fileName, path string) (string, error) {
	args := m.Called(ctx, fileName, path)
	return args.String(0), args.Error(1)
}

// TextExtractor mocks domain.TextExtractor.
type TextExtractor struct{ mock.Mock }

func NewTextExtractor(t *testing.T) *TextExtractor {
	m := &TextExtractor{}
	cleanup(t, &m.Mock)
	return m
}

func (m *TextExtractor) ExtractPath(ctx domain.Context, fileName, path string) (string, error) {
	args := m.Called(ctx, fileName, path)
	return args.String(0), args.Error(1)
}

// GeoLocator mocks domain.GeoLocator.
type GeoLocator struct{ mock.Mock }

func NewGeoLocator(t *testing.T) *GeoLocator {
	m := &GeoLocator{}
	cleanup(t, &m.Mock)
	return m
}

func (m *GeoLocator) City(ctx domain.Context, ip string) (string, error) {
	args := m.Called(ctx, ip)
	return args.String(0), args.Error(1)
}

// EventPublisher mocks domain.EventPublisher.
type EventPublisher struct{ mock.Mock }

func NewEventPublisher(t *testing.T) *EventPublisher {
	m := &EventPublisher{}
	cleanup(t, &m.Mock)
	return m
}

func (m *EventPublisher) Publish(ctx domain.Context, ev domain.Event) error {
	return m.Called(ctx, ev).Error(0)
}

// ReportRenderer mocks domain.ReportRenderer.
type ReportRenderer struct{ mock.Mock }

func NewReportRenderer(t *testing.T) *ReportRenderer {
	m := &ReportRenderer{}
	cleanup(t, &m.Mock)
	return m
}

func (m *ReportRenderer) Render(data domain.ReportData) ([]byte, error) {
	args := m.Called(data)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}
