package docstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDocument(t *testing.T) {
	recorded := time.Date(2024, 7, 4, 9, 30, 15, 123456000, time.UTC)

	raw, err := encodeDocument(map[string]interface{}{
		"name":        "Lola",
		"age":         int64(82),
		"active":      true,
		"photo_url":   nil,
		"recorded_at": recorded,
		"tags":        []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"$ts":"2024-07-04T09:30:15.123456000Z"`)

	data, err := decodeDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, "Lola", data["name"])
	assert.Equal(t, int64(82), data["age"])
	assert.Equal(t, true, data["active"])
	assert.Nil(t, data["photo_url"])
	assert.True(t, recorded.Equal(data["recorded_at"].(time.Time)))
	assert.Equal(t, []string{"a", "b"}, data["tags"])
}

func TestEncodeValue_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("PHT", 8*3600)
	local := time.Date(2024, 1, 1, 8, 0, 0, 0, loc)

	got, err := encodeJSONValue(local)
	require.NoError(t, err)
	assert.Equal(t, `{"$ts":"2024-01-01T00:00:00.000000000Z"}`, got)
}

func TestDecodeDocument_RejectsNestedObjects(t *testing.T) {
	_, err := decodeDocument([]byte(`{"meta":{"a":1}}`))
	assert.Error(t, err)
}

func TestBuildSelect(t *testing.T) {
	q := Query{Collection: "calendar_events", OrderBy: "date", Descending: true, Limit: 5, Offset: 10}.
		Where("care_profile_id", OpEqual, "p1").
		Where("date", OpGreaterOrEqual, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	stmt, args, err := buildSelect(q, false)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stmt, "SELECT id, data FROM documents WHERE collection = $1"))
	assert.Contains(t, stmt, "data @> jsonb_build_object($2::text, $3::jsonb)")
	assert.Contains(t, stmt, "data->($4::text) >= $5::jsonb")
	assert.Contains(t, stmt, "data ? ($6::text)")
	assert.Contains(t, stmt, "ORDER BY data->($6::text) DESC, id LIMIT 5 OFFSET 10")
	assert.Equal(t, []interface{}{
		"calendar_events",
		"care_profile_id", `"p1"`,
		"date", `{"$ts":"2024-05-01T00:00:00.000000000Z"}`,
		"date",
	}, args)

	stmt, _, err = buildSelect(Query{Collection: "c"}, true)
	require.NoError(t, err)
	assert.Equal(t, "SELECT count(*) FROM documents WHERE collection = $1", stmt)
}
