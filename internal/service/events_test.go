package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNATSEventPublisherWithoutConnectionLogs(t *testing.T) {
	publisher := NewNATSEventPublisher(nil, "heimdall.events", testLogger())

	_, ok := publisher.(*LogEventPublisher)
	require.True(t, ok)
	require.NoError(t, publisher.Publish(context.Background(), EventEvaluationTagCreated, map[string]int{"id": 1}))
}
