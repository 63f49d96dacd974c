package redpanda

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// TopicSpec describes the event topic created at startup. Partitions and
// retention only take effect when the topic does not exist yet.
type TopicSpec struct {
	Name       string
	Partitions int32
	// Retention of zero keeps the broker default.
	Retention time.Duration
}

const (
	createTopicTimeout = 30 * time.Second
	// Single-broker Redpanda deployments cannot replicate.
	replicationFactor int16 = 1
)

func (s TopicSpec) validate() error {
	switch {
	case s.Name == "":
		return errors.New("topic name is empty")
	case s.Partitions <= 0:
		return fmt.Errorf("topic %s: partitions must be positive, got %d", s.Name, s.Partitions)
	case s.Retention < 0:
		return fmt.Errorf("topic %s: negative retention", s.Name)
	}
	return nil
}

// requester is the subset of *kgo.Client used for admin requests.
type requester interface {
	Request(ctx context.Context, req kmsg.Request) (kmsg.Response, error)
}

var _ requester = (*kgo.Client)(nil)

// ensureTopic creates spec's topic. An existing topic counts as success.
func ensureTopic(ctx context.Context, client requester, spec TopicSpec) error {
	if err := spec.validate(); err != nil {
		return fmt.Errorf("op=redpanda.ensureTopic: %w", err)
	}

	topic := kmsg.NewCreateTopicsRequestTopic()
	topic.Topic = spec.Name
	topic.NumPartitions = spec.Partitions
	topic.ReplicationFactor = replicationFactor
	if spec.Retention > 0 {
		cfg := kmsg.NewCreateTopicsRequestTopicConfig()
		cfg.Name = "retention.ms"
		ms := strconv.FormatInt(spec.Retention.Milliseconds(), 10)
		cfg.Value = &ms
		topic.Configs = append(topic.Configs, cfg)
	}
	req := kmsg.NewPtrCreateTopicsRequest()
	req.TimeoutMillis = int32(createTopicTimeout.Milliseconds())
	req.Topics = append(req.Topics, topic)

	resp, err := req.RequestWith(ctx, client)
	if err != nil {
		return fmt.Errorf("op=redpanda.ensureTopic: %w", err)
	}
	if resp == nil {
		return errors.New("op=redpanda.ensureTopic: no CreateTopics response")
	}
	for _, t := range resp.Topics {
		err := kerr.ErrorForCode(t.ErrorCode)
		switch {
		case err == nil:
			slog.Info("event topic created", slog.String("topic", t.Topic), slog.Int("partitions", int(spec.Partitions)))
		case errors.Is(err, kerr.TopicAlreadyExists):
			slog.Debug("event topic exists", slog.String("topic", t.Topic))
		default:
			if t.ErrorMessage != nil {
				return fmt.Errorf("op=redpanda.ensureTopic: %s: %w: %s", t.Topic, err, *t.ErrorMessage)
			}
			return fmt.Errorf("op=redpanda.ensureTopic: %s: %w", t.Topic, err)
		}
	}
	return nil
}
