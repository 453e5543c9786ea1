package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	err         error
	body        []byte
	contentType string
	headers     amqp.Table
	calls       int
}

func (p *fakePublisher) PublishWithRetry(ctx context.Context, body []byte, contentType string, headers amqp.Table) error {
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.body = body
	p.contentType = contentType
	p.headers = headers
	return nil
}

func TestDispatchCSVJob(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("publishes descriptor with job type header", func(t *testing.T) {
		queue := &fakePublisher{}
		d := NewDispatcher(queue, logger)

		msg := JobMessage{
			JobID:      "7d9f1c3e-5a20-4b8f-9a61-0f3b2c4d5e6f",
			StorageKey: "csv/123-abc-contacts.csv",
			UploaderID: 42,
		}
		require.NoError(t, d.DispatchCSVJob(context.Background(), msg))

		assert.Equal(t, 1, queue.calls)
		assert.Equal(t, "application/json", queue.contentType)
		assert.Equal(t, "csv_processing", queue.headers["jobType"])

		var decoded JobMessage
		require.NoError(t, json.Unmarshal(queue.body, &decoded))
		assert.Equal(t, msg, decoded)
	})

	t.Run("publish failure is surfaced", func(t *testing.T) {
		queue := &fakePublisher{err: assert.AnError}
		d := NewDispatcher(queue, logger)

		err := d.DispatchCSVJob(context.Background(), JobMessage{JobID: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to dispatch job")
	})
}
