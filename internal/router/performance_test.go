package router_test

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JJediny/heimdall2/internal/dto"
)

func TestEvaluationTagListP95LatencyBelow250ms(t *testing.T) {
	server := newTestServer(t, 20)
	evaluation := server.seedEvaluation(t)

	resp, _ := server.do(t, http.MethodPost, "/users", "", dto.RegisterRequest{Username: "alice", Password: "correct horse battery"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := server.login(t, "alice", "correct horse battery")

	for i := 0; i < 50; i++ {
		resp, _ := server.do(t, http.MethodPost, fmt.Sprintf("/evaluation-tags/%d", evaluation.ID), token, dto.CreateEvaluationTagRequest{
			Key:   fmt.Sprintf("key-%d", i),
			Value: fmt.Sprintf("value-%d", i),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	runs := 40
	durations := make([]time.Duration, 0, runs)
	for i := 0; i < runs; i++ {
		start := time.Now()
		resp, _ := server.do(t, http.MethodGet, "/evaluation-tags", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	index := int(math.Ceil(0.95*float64(len(durations)))) - 1
	if index < 0 {
		index = 0
	}

	require.LessOrEqual(t, durations[index], 250*time.Millisecond)
}
