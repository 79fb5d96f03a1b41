//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"trainingcenter/internal/certificate/notify"
	"trainingcenter/internal/platform/config"
	"trainingcenter/internal/platform/kafka"
	"trainingcenter/pkg/testutil/containers"
)

func TestKafkaPublisherAgainstRedpanda(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "certificates.issued.test"
	producer, err := kafka.NewProducer(ctx, config.KafkaConfig{Brokers: rp.Brokers, Topic: topic, ClientID: "test"})
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, kafka.EnsureTopic(ctx, producer, topic, 1, 1))
	require.NoError(t, kafka.EnsureTopic(ctx, producer, topic, 1, 1), "existing topics are accepted")

	pub := notify.NewKafkaPublisher(producer, topic)
	require.NoError(t, pub.Publish(ctx, notify.Event{
		Kind:       notify.KindCertificateIssued,
		StudentID:  "S1",
		CourseName: "Wiring",
		DisplayID:  "CERT-2024-0001",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)

	var ev notify.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &ev))
	require.Equal(t, "CERT-2024-0001", ev.DisplayID)
	require.Equal(t, "S1", string(records[0].Key))
}
