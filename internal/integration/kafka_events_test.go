//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/couchcryptid/terrain-analysis-service/internal/adapter/kafka"
	"github.com/couchcryptid/terrain-analysis-service/internal/config"
	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
)

const testEventsTopic = "terrain-workflow-events"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("terrain-test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestNotifierPublishesStageEvents verifies that stage events round-trip
// through a real broker with run-ID keys and in publish order.
func TestNotifierPublishesStageEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventsTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaEventsTopic: testEventsTopic,
	}

	notifier := kafkaadapter.NewNotifier(cfg, discardLogger())
	t.Cleanup(func() { _ = notifier.Close() })

	runID := "a1b2c3d4e5f60718"
	states := []string{"ACQUIRING", "HYDROLOGY", "TOPOLOGY", "DELINEATION", "DONE"}
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	for i, state := range states {
		require.NoError(t, notifier.Publish(ctx, domain.StageEvent{
			RunID: runID,
			State: state,
			At:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testEventsTopic,
		GroupID:     fmt.Sprintf("test-events-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i, want := range states {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read event %d", i)

		assert.Equal(t, runID, string(msg.Key), "events are keyed by run ID")

		var event domain.StageEvent
		require.NoError(t, json.Unmarshal(msg.Value, &event))
		assert.Equal(t, want, event.State, "events arrive in publish order")
		assert.Equal(t, runID, event.RunID)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, want, headers["state"])
		_, err = time.Parse(time.RFC3339, headers["at"])
		assert.NoError(t, err, "at header should be valid RFC3339")
	}
}
