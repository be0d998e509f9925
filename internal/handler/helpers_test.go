package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/JJediny/heimdall2/internal/auth"
	"github.com/JJediny/heimdall2/internal/models"
)

type errorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

// validateContract checks a response body against a schema under testdata/.
func validateContract(t *testing.T, schemaFile string, body []byte) {
	t.Helper()

	schemaPath, err := filepath.Abs(filepath.Join("testdata", schemaFile))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	var document interface{}
	require.NoError(t, json.Unmarshal(body, &document))
	require.NoError(t, schema.Validate(document))
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}

type stubSessions map[string]models.User

func (s stubSessions) Authenticate(_ context.Context, token string) (models.User, error) {
	user, ok := s[token]
	if !ok {
		return models.User{}, auth.ErrSessionInvalid
	}
	return user, nil
}
