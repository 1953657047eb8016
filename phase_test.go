package lifecycle_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/junioryono/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase(t *testing.T) {
	t.Run("constants", func(t *testing.T) {
		assert.Equal(t, lifecycle.Phase(0), lifecycle.Activate)
		assert.Equal(t, lifecycle.Phase(1), lifecycle.PostConstruct)
		assert.Equal(t, lifecycle.Phase(2), lifecycle.PreDestroy)
		assert.Equal(t, []lifecycle.Phase{lifecycle.Activate, lifecycle.PostConstruct, lifecycle.PreDestroy}, lifecycle.Phases())
	})

	t.Run("String", func(t *testing.T) {
		tests := []struct {
			phase    lifecycle.Phase
			expected string
		}{
			{lifecycle.Activate, "Activate"},
			{lifecycle.PostConstruct, "PostConstruct"},
			{lifecycle.PreDestroy, "PreDestroy"},
			{lifecycle.Phase(999), "Unknown(999)"},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.expected, tt.phase.String())
		}
	})

	t.Run("IsValid", func(t *testing.T) {
		tests := []struct {
			phase lifecycle.Phase
			valid bool
		}{
			{lifecycle.Activate, true},
			{lifecycle.PostConstruct, true},
			{lifecycle.PreDestroy, true},
			{lifecycle.Phase(-1), false},
			{lifecycle.Phase(3), false},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.valid, tt.phase.IsValid(), "phase %d", int(tt.phase))
		}
	})

	t.Run("UnmarshalText", func(t *testing.T) {
		tests := []struct {
			input    string
			expected lifecycle.Phase
		}{
			{"Activate", lifecycle.Activate},
			{"activate", lifecycle.Activate},
			{"ACTIVATE", lifecycle.Activate},
			{"PostConstruct", lifecycle.PostConstruct},
			{"post_construct", lifecycle.PostConstruct},
			{"POST_CONSTRUCT", lifecycle.PostConstruct},
			{"PreDestroy", lifecycle.PreDestroy},
			{"preDestroy", lifecycle.PreDestroy},
			{"pre_destroy", lifecycle.PreDestroy},
		}

		for _, tt := range tests {
			t.Run(tt.input, func(t *testing.T) {
				var p lifecycle.Phase
				require.NoError(t, p.UnmarshalText([]byte(tt.input)))
				assert.Equal(t, tt.expected, p)
			})
		}

		var p lifecycle.Phase
		err := p.UnmarshalText([]byte("teardown"))
		var pe lifecycle.PhaseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "teardown", pe.Value)
	})

	t.Run("MarshalText invalid", func(t *testing.T) {
		_, err := lifecycle.Phase(7).MarshalText()
		var pe lifecycle.PhaseError
		assert.True(t, errors.As(err, &pe))
	})

	t.Run("JSON", func(t *testing.T) {
		type hookConfig struct {
			Phase lifecycle.Phase `json:"phase"`
		}

		data, err := json.Marshal(hookConfig{Phase: lifecycle.PreDestroy})
		require.NoError(t, err)
		assert.JSONEq(t, `{"phase":"PreDestroy"}`, string(data))

		var decoded hookConfig
		require.NoError(t, json.Unmarshal([]byte(`{"phase":"post_construct"}`), &decoded))
		assert.Equal(t, lifecycle.PostConstruct, decoded.Phase)

		assert.Error(t, json.Unmarshal([]byte(`{"phase":3}`), &decoded))
		assert.Error(t, json.Unmarshal([]byte(`{"phase":"never"}`), &decoded))
	})
}
