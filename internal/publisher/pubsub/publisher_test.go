package pubsub

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublishWithoutTopic(t *testing.T) {
	_, err := New(nil).Publish(context.Background(), "crawl.completed", map[string]int{"top_count": 3})
	require.ErrorContains(t, err, "not configured")
}

func TestDialRequiresProjectAndTopic(t *testing.T) {
	_, _, err := Dial(context.Background(), "", "crawl-events")
	require.Error(t, err)
	_, _, err = Dial(context.Background(), "newsrank", "")
	require.Error(t, err)
}

func TestPublishDeliversJSONWithEventAttribute(t *testing.T) {
	ctx := context.Background()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "newsrank", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "crawl-events")
	require.NoError(t, err)
	defer topic.Stop()

	id, err := New(topic).Publish(ctx, "crawl.completed", map[string]any{"job_id": "job-1", "top_count": 3})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "crawl.completed", msgs[0].Attributes[EventAttribute])
	assert.JSONEq(t, `{"job_id":"job-1","top_count":3}`, string(msgs[0].Data))
}
