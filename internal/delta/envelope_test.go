package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVenueResponse_BareList(t *testing.T) {
	resp := decodeVenueResponse([]byte(`[{"id":1},{"id":2}]`))

	assert.Equal(t, shapeBareList, resp.kind)
	list, ok := resp.resultList()
	require.True(t, ok)
	assert.Len(t, list, 2)
}

func TestDecodeVenueResponse_SuccessEnvelope(t *testing.T) {
	resp := decodeVenueResponse([]byte(`{"success":true,"result":{"id":42}}`))

	assert.Equal(t, shapeSuccess, resp.kind)
	payload, ok := resp.resultAny().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(42), payload["id"])
}

func TestDecodeVenueResponse_SuccessEnvelopeWithList(t *testing.T) {
	resp := decodeVenueResponse([]byte(`{"success":true,"result":[{"id":1}]}`))

	assert.Equal(t, shapeSuccess, resp.kind)
	list, ok := resp.resultList()
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestDecodeVenueResponse_FailureEnvelope(t *testing.T) {
	resp := decodeVenueResponse([]byte(`{"success":false,"error":{"message":"insufficient margin"}}`))

	assert.Equal(t, shapeFailure, resp.kind)
	assert.Equal(t, "insufficient margin", resp.errMsg)
}

func TestDecodeVenueResponse_FailureEnvelopeWithoutMessage(t *testing.T) {
	resp := decodeVenueResponse([]byte(`{"success":false}`))

	assert.Equal(t, shapeFailure, resp.kind)
	assert.Equal(t, "venue reported failure", resp.errMsg)
}

func TestDecodeVenueResponse_MissingFlagWithResult(t *testing.T) {
	// Some endpoints omit the success flag entirely but still carry a result.
	resp := decodeVenueResponse([]byte(`{"result":[{"id":7}]}`))

	assert.Equal(t, shapeSuccess, resp.kind)
	list, ok := resp.resultList()
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestDecodeVenueResponse_Unrecognized(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"whitespace":   "   ",
		"garbage":      "not json at all",
		"broken list":  "[{",
		"bare object":  `{"foo":"bar"}`,
		"null literal": "null",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := decodeVenueResponse([]byte(body))
			assert.Equal(t, shapeUnrecognized, resp.kind)
			assert.Nil(t, resp.resultAny())
		})
	}
}

func TestResultList_NonListResult(t *testing.T) {
	resp := decodeVenueResponse([]byte(`{"success":true,"result":{"id":1}}`))

	_, ok := resp.resultList()
	assert.False(t, ok)
}
