package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusweb/sitedata/internal/fetch"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "success", StateSuccess.String())
	assert.Equal(t, "failure", StateFailure.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestSnapshotHelpers(t *testing.T) {
	tests := []struct {
		state   State
		loading bool
		failed  bool
	}{
		{StateIdle, true, false},
		{StateLoading, true, false},
		{StateSuccess, false, false},
		{StateFailure, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			s := Snapshot[int]{State: tt.state}
			assert.Equal(t, tt.loading, s.Loading())
			assert.Equal(t, tt.failed, s.Failed())
			assert.False(t, s.Usable())
		})
	}

	assert.True(t, Snapshot[int]{HasData: true}.Usable())
}

func TestDescriptorKey(t *testing.T) {
	base := Descriptor{Resource: "news", Locale: "ru", Filters: fetch.Filters{"a": 1, "b": "x"}}

	same := Descriptor{Resource: "news", Locale: "ru", Filters: fetch.Filters{"b": "x", "a": 1}}
	assert.Equal(t, base.Key(), same.Key())

	assert.NotEqual(t, base.Key(), base.WithLocale("en").Key())
	assert.NotEqual(t, base.Key(), Descriptor{Resource: "events", Locale: "ru", Filters: base.Filters}.Key())
	assert.NotEqual(t, base.Key(), Descriptor{Resource: "news", Locale: "ru", Filters: base.Filters, Deps: []any{1}}.Key())
	assert.Equal(t, "ru", base.Locale, "WithLocale copies")
}
