package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSearchResult(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		kind      SearchResultKind
		analyses  []string
		keepsBody bool
	}{
		{"records", `[{"id":2,"analysis":"a","similarity":0.9},{"id":1,"analysis":"b"}]`, SearchResultRecords, []string{"a", "b"}, false},
		{"record without analysis", `[{"id":3,"title":"t"}]`, SearchResultRecords, []string{""}, false},
		{"strings", `["first","second"]`, SearchResultStrings, []string{"first", "second"}, false},
		{"mixed keeps first shape", `["s",{"analysis":"o"}]`, SearchResultStrings, []string{"s", "o"}, false},
		{"null elements skipped", `[null,{"analysis":"x"}]`, SearchResultRecords, []string{"x"}, false},
		{"empty list", `[]`, SearchResultEmpty, nil, false},
		{"only nulls", `[null]`, SearchResultEmpty, nil, false},
		{"null", `null`, SearchResultEmpty, nil, false},
		{"blank", "  ", SearchResultEmpty, nil, false},
		{"error object", `{"code":"PGRST202","message":"function not found"}`, SearchResultInvalid, nil, true},
		{"scalar", `42`, SearchResultInvalid, nil, true},
		{"number elements", `[1,2]`, SearchResultEmpty, nil, false},
		{"bool elements", `[true]`, SearchResultEmpty, nil, false},
		{"text id", `[{"id":"a1b2","analysis":"past"}]`, SearchResultRecords, []string{"past"}, false},
		{"string similarity", `[{"id":1,"analysis":"past","similarity":"0.9"}]`, SearchResultRecords, []string{"past"}, false},
		{"null analysis", `[{"id":1,"analysis":null}]`, SearchResultRecords, []string{""}, false},
		{"non-string analysis", `[{"id":1,"analysis":42}]`, SearchResultInvalid, nil, true},
		{"number after records", `[{"analysis":"a"},1]`, SearchResultInvalid, nil, true},
		{"malformed", `[{"analysis":`, SearchResultInvalid, nil, true},
		{"html", `<html>502</html>`, SearchResultInvalid, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := DecodeSearchResult([]byte(tc.raw))
			assert.Equal(t, tc.kind, res.Kind)

			if tc.keepsBody {
				assert.Equal(t, tc.raw, res.Raw)
				assert.Empty(t, res.Matches)
				return
			}
			require.Len(t, res.Matches, len(tc.analyses))
			for i, a := range tc.analyses {
				assert.Equal(t, a, res.Matches[i].Analysis)
			}
		})
	}
}

func TestDecodeSearchResult_Similarity(t *testing.T) {
	res := DecodeSearchResult([]byte(`[{"id":7,"analysis":"a","similarity":0.42}]`))
	require.Len(t, res.Matches, 1)
	assert.Equal(t, int64(7), res.Matches[0].ID)
	require.NotNil(t, res.Matches[0].Similarity)
	assert.InDelta(t, 0.42, *res.Matches[0].Similarity, 1e-9)
}

func TestRecordsResult(t *testing.T) {
	assert.Equal(t, SearchResultEmpty, RecordsResult(nil).Kind)
	assert.Equal(t, SearchResultRecords, RecordsResult([]MatchedMinute{{Analysis: "a"}}).Kind)
}

func TestDecodeSearchResult_LooseOptionalFields(t *testing.T) {
	res := DecodeSearchResult([]byte(`[{"id":"a1b2","title":7,"analysis":"past","similarity":"0.9"}]`))
	require.Len(t, res.Matches, 1)
	assert.Zero(t, res.Matches[0].ID)
	assert.Empty(t, res.Matches[0].Title)
	assert.Nil(t, res.Matches[0].Similarity)
	assert.Equal(t, "past", res.Matches[0].Analysis)
}
