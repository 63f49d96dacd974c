package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/fairyhunter13/vericv/internal/domain"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func (f *fakeProducer) Close() { f.closed = true }

func TestPublisher_Publish(t *testing.T) {
	fp := &fakeProducer{}
	p := &Publisher{client: fp, topic: "vericv.events"}

	err := p.Publish(context.Background(), domain.Event{
		Type:   domain.EventResultSubmitted,
		Key:    "r1",
		UserID: "u1",
		Data:   map[string]any{"score": 80},
	})
	require.NoError(t, err)
	require.Len(t, fp.records, 1)
	rec := fp.records[0]
	assert.Equal(t, "vericv.events", rec.Topic)
	assert.Equal(t, []byte("r1"), rec.Key)
	assert.Equal(t, "event_type", rec.Headers[0].Key)
	assert.Equal(t, []byte(domain.EventResultSubmitted), rec.Headers[0].Value)

	var ev domain.Event
	require.NoError(t, json.Unmarshal(rec.Value, &ev))
	assert.Equal(t, "u1", ev.UserID)
	assert.False(t, ev.OccurredAt.IsZero())

	require.NoError(t, p.Close())
	assert.True(t, fp.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	p := &Publisher{client: &fakeProducer{err: errors.New("broker down")}, topic: "t"}
	err := p.Publish(context.Background(), domain.Event{Type: domain.EventQuizGenerated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Publish(context.Background(), domain.Event{Type: "x"}))
}

func TestNewPublisher_NoBrokers(t *testing.T) {
	_, err := NewPublisher(context.Background(), nil, TopicSpec{Name: "t", Partitions: 1})
	assert.Error(t, err)
}

type fakeRequester struct {
	resp kmsg.Response
	err  error
}

func (f fakeRequester) Request(_ context.Context, _ kmsg.Request) (kmsg.Response, error) {
	return f.resp, f.err
}

func topicsResponse(code int16, msg string) *kmsg.CreateTopicsResponse {
	resp := kmsg.NewPtrCreateTopicsResponse()
	tr := kmsg.NewCreateTopicsResponseTopic()
	tr.Topic = "t"
	tr.ErrorCode = code
	if msg != "" {
		tr.ErrorMessage = &msg
	}
	resp.Topics = append(resp.Topics, tr)
	return resp
}

func TestEnsureTopic(t *testing.T) {
	ctx := context.Background()
	spec := TopicSpec{Name: "t", Partitions: 3, Retention: 24 * time.Hour}

	assert.Error(t, ensureTopic(ctx, fakeRequester{}, TopicSpec{Partitions: 1}))
	assert.Error(t, ensureTopic(ctx, fakeRequester{}, TopicSpec{Name: "t"}))
	assert.Error(t, ensureTopic(ctx, fakeRequester{}, TopicSpec{Name: "t", Partitions: 1, Retention: -time.Second}))

	assert.NoError(t, ensureTopic(ctx, fakeRequester{resp: topicsResponse(0, "")}, spec))
	assert.NoError(t, ensureTopic(ctx, fakeRequester{resp: topicsResponse(kerr.TopicAlreadyExists.Code, "")}, spec))

	err := ensureTopic(ctx, fakeRequester{resp: topicsResponse(kerr.NotController.Code, "not controller")}, spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, kerr.NotController)
	assert.Contains(t, err.Error(), "not controller")

	assert.Error(t, ensureTopic(ctx, fakeRequester{err: errors.New("dial")}, spec))
	assert.Error(t, ensureTopic(ctx, fakeRequester{resp: kmsg.NewPtrMetadataResponse()}, spec))
}

type capturingRequester struct {
	got *kmsg.CreateTopicsRequest
}

func (c *capturingRequester) Request(_ context.Context, req kmsg.Request) (kmsg.Response, error) {
	c.got, _ = req.(*kmsg.CreateTopicsRequest)
	return topicsResponse(0, ""), nil
}

func TestEnsureTopic_SendsRetention(t *testing.T) {
	rq := &capturingRequester{}
	require.NoError(t, ensureTopic(context.Background(), rq, TopicSpec{Name: "t", Partitions: 2, Retention: time.Hour}))
	require.NotNil(t, rq.got)
	require.Len(t, rq.got.Topics, 1)
	topic := rq.got.Topics[0]
	assert.Equal(t, int32(2), topic.NumPartitions)
	require.Len(t, topic.Configs, 1)
	assert.Equal(t, "retention.ms", topic.Configs[0].Name)
	assert.Equal(t, "3600000", *topic.Configs[0].Value)

	require.NoError(t, ensureTopic(context.Background(), rq, TopicSpec{Name: "t", Partitions: 1}))
	assert.Empty(t, rq.got.Topics[0].Configs)
}
