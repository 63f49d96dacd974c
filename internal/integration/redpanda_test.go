//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	containerTypes "github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/vericv/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/vericv/internal/domain"
)

// redpandaHostPort is bound explicitly because the broker advertises it to clients.
const redpandaHostPort = 19092

func startRedpanda(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "redpandadata/redpanda:v24.3.7",
		ExposedPorts: []string{"9092/tcp"},
		Cmd: []string{
			"redpanda", "start",
			"--overprovisioned",
			"--smp", "1",
			"--memory", "256M",
			"--reserve-memory", "0M",
			"--check=false",
			"--kafka-addr", "PLAINTEXT://0.0.0.0:9092",
			"--advertise-kafka-addr", fmt.Sprintf("PLAINTEXT://127.0.0.1:%d", redpandaHostPort),
			"--mode", "dev-container",
		},
		WaitingFor: wait.ForListeningPort("9092/tcp").WithStartupTimeout(60 * time.Second),
	}
	req.HostConfigModifier = func(hc *containerTypes.HostConfig) {
		if hc.PortBindings == nil {
			hc.PortBindings = nat.PortMap{}
		}
		hc.PortBindings[nat.Port("9092/tcp")] = []nat.PortBinding{
			{HostIP: "0.0.0.0", HostPort: fmt.Sprintf("%d", redpandaHostPort)},
		}
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	return fmt.Sprintf("localhost:%d", redpandaHostPort)
}

func Test_Redpanda_PublishesEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	broker := startRedpanda(ctx, t)
	const topic = "vericv.events.it"

	pub, err := redpanda.NewPublisher(ctx, []string{broker}, redpanda.TopicSpec{Name: topic, Partitions: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	require.NoError(t, pub.Publish(ctx, domain.Event{
		Type:   domain.EventResultSubmitted,
		Key:    "res-1",
		UserID: "u1",
		Data:   map[string]any{"score": 75},
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, "res-1", string(records[0].Key))

	var ev domain.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &ev))
	assert.Equal(t, domain.EventResultSubmitted, ev.Type)
	assert.EqualValues(t, 75, ev.Data["score"])
	assert.False(t, ev.OccurredAt.IsZero())
}
