package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapPreservesKeyOrder(t *testing.T) {
	var m StatusMap
	require.NoError(t, json.Unmarshal([]byte(`{"sugar":"95","bp":"118/76","bmi":22.5,"fasting":true}`), &m))

	require.Len(t, m, 4)
	assert.Equal(t, "sugar", m[0].Key)
	bmi, ok := m.Get("bmi")
	require.True(t, ok)
	assert.Equal(t, "22.5", bmi)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"sugar":"95","bp":"118/76","bmi":"22.5","fasting":"true"}`, string(out))
}

func TestStatusMapRejectsNestedValues(t *testing.T) {
	var m StatusMap
	assert.Error(t, json.Unmarshal([]byte(`{"bp":{"sys":120}}`), &m))
	assert.Error(t, json.Unmarshal([]byte(`["bp"]`), &m))
}

func TestStatusMapScanAndValue(t *testing.T) {
	m := StatusMap{}.Set("bp", "120/80")
	raw, err := m.Value()
	require.NoError(t, err)

	var scanned StatusMap
	require.NoError(t, scanned.Scan(raw))
	assert.Equal(t, m, scanned)

	var empty StatusMap
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)
}

func TestReportCurrentVersionIsLast(t *testing.T) {
	r := &Report{Versions: []ReportVersion{{Version: 1}, {Version: 2}}}
	assert.Equal(t, 2, r.CurrentVersion().Version)
	assert.Equal(t, 1, r.VersionByNumber(1).Version)
	assert.Nil(t, r.VersionByNumber(3))
	assert.Nil(t, (&Report{}).CurrentVersion())
}

func TestStatusMapDuplicateKeysKeepFirstPosition(t *testing.T) {
	var m StatusMap
	require.NoError(t, json.Unmarshal([]byte(`{"bp":"120/80","sugar":null,"bp":"118/76"}`), &m))

	assert.Equal(t, StatusMap{{Key: "bp", Value: "118/76"}, {Key: "sugar", Value: ""}}, m)

	var empty StatusMap
	out, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Nil(t, m)
}
