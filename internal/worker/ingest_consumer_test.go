package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docrag/backend/internal/ingest"
	"docrag/backend/internal/middleware"
	"docrag/backend/internal/worker"
)

type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) ProcessPending(ctx context.Context) (*ingest.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.Report), args.Error(1)
}

func TestIngestConsumer_HandleMessage(t *testing.T) {
	t.Run("Runs Pipeline", func(t *testing.T) {
		pipeline := new(MockPipeline)
		pipeline.On("ProcessPending", mock.Anything).
			Return(&ingest.Report{Processed: []string{"doc-1"}}, nil)

		consumer := worker.NewIngestConsumer(pipeline, time.Minute)
		msg := nsq.NewMessage(nsq.MessageID{}, []byte(`{"doc_id": "doc-1", "file_name": "a.pdf"}`))

		assert.NoError(t, consumer.HandleMessage(msg))
		pipeline.AssertNumberOfCalls(t, "ProcessPending", 1)
	})

	t.Run("Empty Body Dropped", func(t *testing.T) {
		pipeline := new(MockPipeline)
		consumer := worker.NewIngestConsumer(pipeline, time.Minute)

		msg := nsq.NewMessage(nsq.MessageID{}, nil)
		assert.NoError(t, consumer.HandleMessage(msg))
		pipeline.AssertNotCalled(t, "ProcessPending", mock.Anything)
	})

	t.Run("Invalid JSON Dropped Without Retry", func(t *testing.T) {
		pipeline := new(MockPipeline)
		consumer := worker.NewIngestConsumer(pipeline, time.Minute)

		msg := nsq.NewMessage(nsq.MessageID{}, []byte(`{not json`))
		assert.NoError(t, consumer.HandleMessage(msg))
		pipeline.AssertNotCalled(t, "ProcessPending", mock.Anything)
	})

	t.Run("Pipeline Failure Requeues", func(t *testing.T) {
		pipeline := new(MockPipeline)
		pipeline.On("ProcessPending", mock.Anything).Return(nil, errors.New("db down"))

		consumer := worker.NewIngestConsumer(pipeline, time.Minute)
		msg := nsq.NewMessage(nsq.MessageID{}, []byte(`{"doc_id": "doc-1"}`))

		assert.Error(t, consumer.HandleMessage(msg))
	})

	t.Run("Correlation ID Propagated", func(t *testing.T) {
		pipeline := new(MockPipeline)
		pipeline.On("ProcessPending", mock.Anything).
			Return(&ingest.Report{}, nil)

		consumer := worker.NewIngestConsumer(pipeline, time.Minute)
		msg := nsq.NewMessage(nsq.MessageID{}, []byte(`{"doc_id": "doc-1", "correlation_id": "corr-42"}`))

		assert.NoError(t, consumer.HandleMessage(msg))

		ctx := pipeline.Calls[0].Arguments.Get(0).(context.Context)
		assert.Equal(t, "corr-42", middleware.GetCorrelationID(ctx))
	})

	t.Run("Missing Correlation ID Generated", func(t *testing.T) {
		pipeline := new(MockPipeline)
		pipeline.On("ProcessPending", mock.Anything).
			Return(&ingest.Report{}, nil)

		consumer := worker.NewIngestConsumer(pipeline, time.Minute)
		msg := nsq.NewMessage(nsq.MessageID{}, []byte(`{"doc_id": "doc-1"}`))

		assert.NoError(t, consumer.HandleMessage(msg))

		ctx := pipeline.Calls[0].Arguments.Get(0).(context.Context)
		assert.NotEmpty(t, middleware.GetCorrelationID(ctx))
	})
}
