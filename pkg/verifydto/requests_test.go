package verifydto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/match-verify/internal/domain"
)

func TestSubmissionPayloadConfidence(t *testing.T) {
	var absent SubmissionPayload
	require.NoError(t, json.Unmarshal([]byte(`{"game":"dls","teamSize":1,"winner":"A"}`), &absent))
	assert.Nil(t, absent.Confidence)
	assert.Equal(t, domain.SideA, absent.Winner)

	var zero SubmissionPayload
	require.NoError(t, json.Unmarshal([]byte(`{"game":"dls","confidence":0}`), &zero))
	require.NotNil(t, zero.Confidence)
	assert.Zero(t, *zero.Confidence)

	p := NewSubmissionPayload(domain.Result{Game: "dls", Confidence: 0.7})
	require.NotNil(t, p.Confidence)
	assert.InDelta(t, 0.7, *p.Confidence, 1e-9)
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"confidence":0.7`)
}

func TestServerTimestamp(t *testing.T) {
	req := &CompareRequest{ServerTimestamps: []string{"2026-01-01T00:00:00Z"}}
	assert.Equal(t, "2026-01-01T00:00:00Z", req.ServerTimestamp(0))
	assert.Empty(t, req.ServerTimestamp(1))
	assert.Empty(t, req.ServerTimestamp(-1))

	var nilReq *CompareRequest
	assert.Empty(t, nilReq.ServerTimestamp(0))
}

func TestDomainErrorMessage(t *testing.T) {
	assert.Equal(t, "bad image", DomainError{Code: CodeImageDecode, Message: "bad image"}.Error())
	assert.Equal(t, CodeNotFound, DomainError{Code: CodeNotFound}.Error())
	assert.Equal(t, "verify service error", DomainError{}.Error())
}
