package common

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name"`
}

func TestSuccessAndFailure(t *testing.T) {
	ok := Success(sample{Name: "a"})
	assert.True(t, ok.Success)
	assert.Empty(t, ok.Message)
	assert.Equal(t, "a", ok.Payload.Name)

	failed := Failuref[sample]("anchor %s not found", "x")
	assert.False(t, failed.Success)
	assert.Equal(t, "anchor x not found", failed.Message)
	assert.Equal(t, sample{}, failed.Payload)
}

func TestFromResult(t *testing.T) {
	resp := FromResult(sample{Name: "a"}, nil, "ignored: ")
	assert.True(t, resp.Success)

	resp = FromResult(sample{Name: "a"}, errors.New("boom"), "Failed to find anchor\n")
	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to find anchor\nboom", resp.Message)
	assert.Equal(t, sample{}, resp.Payload)
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Success(Empty{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"payload":{}}`, string(data))

	failed := ServiceResponse[sample]{Success: false, Message: "bad", Payload: sample{Name: "leak"}}
	data, err = json.Marshal(failed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"bad"}`, string(data))
}

func TestUnmarshalJSONDropsFailurePayload(t *testing.T) {
	var resp ServiceResponse[sample]
	require.NoError(t, json.Unmarshal([]byte(`{"success":false,"message":"bad","payload":{"name":"garbage"}}`), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "bad", resp.Message)
	assert.Equal(t, sample{}, resp.Payload)

	require.NoError(t, json.Unmarshal([]byte(`{"success":false}`), &resp))
	assert.Equal(t, "request failed", resp.Message)

	require.NoError(t, json.Unmarshal([]byte(`{"success":true,"payload":{"name":"n"}}`), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "n", resp.Payload.Name)
}

func TestRespondEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondEnvelope(rec, 200, Success(map[string]sample{"a": {Name: "a"}}))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"payload":{"a":{"name":"a"}}}`, rec.Body.String())
}
