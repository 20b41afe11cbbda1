package delta

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOk_PopulatesResultOnly(t *testing.T) {
	res := Ok(map[string]any{"id": 1})

	assert.True(t, res.Success)
	assert.NotNil(t, res.Result)
	assert.Nil(t, res.Error)
	assert.Empty(t, res.Message())
}

func TestFail_PopulatesErrorOnly(t *testing.T) {
	res := Fail("boom")

	assert.False(t, res.Success)
	assert.Nil(t, res.Result)
	require.NotNil(t, res.Error)
	assert.Equal(t, "boom", res.Message())
}

func TestResult_JSONShape(t *testing.T) {
	okJSON, err := json.Marshal(Ok([]int{1, 2}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"result":[1,2]}`, string(okJSON))

	failJSON, err := json.Marshal(Fail("nope"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"message":"nope"}}`, string(failJSON))
}
