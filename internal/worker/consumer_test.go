package worker

import (
	"testing"

	"github.com/leadforge/leadforge/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJobMessage(t *testing.T) {
	validBody := []byte(`{"jobId":"` + testJobID + `","storageKey":"csv/1-a-f.csv","uploaderId":42}`)

	tests := []struct {
		name     string
		delivery amqp.Delivery
		wantErr  bool
	}{
		{
			name: "valid message",
			delivery: amqp.Delivery{
				Body:        validBody,
				Headers:     amqp.Table{"jobType": "csv_processing"},
				DeliveryTag: 7,
			},
		},
		{
			name: "missing job type header is accepted",
			delivery: amqp.Delivery{
				Body: validBody,
			},
		},
		{
			name: "unexpected job type",
			delivery: amqp.Delivery{
				Body:    validBody,
				Headers: amqp.Table{"jobType": "email_blast"},
			},
			wantErr: true,
		},
		{
			name: "invalid json",
			delivery: amqp.Delivery{
				Body: []byte(`{"jobId":`),
			},
			wantErr: true,
		},
		{
			name: "job id is not a uuid",
			delivery: amqp.Delivery{
				Body: []byte(`{"jobId":"job-1","storageKey":"csv/1-a-f.csv"}`),
			},
			wantErr: true,
		},
		{
			name: "empty storage key",
			delivery: amqp.Delivery{
				Body: []byte(`{"jobId":"` + testJobID + `","storageKey":""}`),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := decodeJobMessage(tt.delivery)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrMalformedMessage)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, testJobID, msg.JobID)
			assert.Equal(t, "csv/1-a-f.csv", msg.StorageKey)
			assert.Equal(t, tt.delivery.DeliveryTag, msg.DeliveryTag)
		})
	}
}

func TestShouldRequeue(t *testing.T) {
	assert.True(t, shouldRequeue(domain.NewRetryableError(assert.AnError)))
	assert.False(t, shouldRequeue(assert.AnError))
	assert.False(t, shouldRequeue(domain.ErrJobNotFound))
}
