package promptdepot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreationStrategy_Names(t *testing.T) {
	t.Parallel()
	for _, s := range []CreationStrategy{StrategyFromPreviousVersion, StrategyEmpty, StrategyWithContent} {
		assert.True(t, s.Valid())
		parsed, err := ParseCreationStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	assert.Equal(t, "from_previous_version", StrategyFromPreviousVersion.String())
	assert.False(t, CreationStrategy(7).Valid())
	assert.Equal(t, "CreationStrategy(7)", CreationStrategy(7).String())
	_, err := ParseCreationStrategy("copy")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCreateVersionRequest_Check(t *testing.T) {
	t.Parallel()
	v1 := SemanticVersion{Major: 1}
	content := "x"
	md := NewMetadata("t", v1, time.Now())
	other := NewMetadata("u", v1, time.Now())

	tests := []struct {
		name string
		req  CreateVersionRequest
		want error
	}{
		{"zero value", CreateVersionRequest{}, nil},
		{"empty ignores content", CreateVersionRequest{Strategy: StrategyEmpty, Content: &content}, nil},
		{"with content", CreateVersionRequest{Strategy: StrategyWithContent, Content: &content}, nil},
		{"with empty content", CreateVersionRequest{Strategy: StrategyWithContent, Content: new(string)}, nil},
		{"with content missing", CreateVersionRequest{Strategy: StrategyWithContent}, ErrInvalidArgument},
		{"unknown strategy", CreateVersionRequest{Strategy: CreationStrategy(-1)}, ErrInvalidArgument},
		{"matching metadata", CreateVersionRequest{Metadata: &md}, nil},
		{"other template", CreateVersionRequest{Metadata: &other}, ErrInvalidMetadata},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Check("t", v1)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}

	require.ErrorIs(t, CreateVersionRequest{Metadata: &md}.Check("t", SemanticVersion{Major: 2}), ErrInvalidMetadata)
}

func TestNewMetadata(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC+3", 3*3600)
	m := NewMetadata("t", SemanticVersion{Minor: 1}, time.Date(2025, 1, 1, 3, 0, 0, 0, loc))
	assert.Equal(t, time.UTC, m.CreatedAt.Location())
	assert.Equal(t, 0, m.CreatedAt.Hour())
	assert.NotNil(t, m.Tags)
	assert.NotNil(t, m.Changelog)

	m.Tags = append(m.Tags, "a")
	c := m.Clone()
	c.Tags[0] = "b"
	assert.Equal(t, "a", m.Tags[0])
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{}, NormalizeTags(nil))
	in := []string{"b", "a", "b"}
	assert.Equal(t, []string{"a", "b"}, NormalizeTags(in))
	assert.Equal(t, []string{"b", "a", "b"}, in)
}

func TestRendererConfig_Clone(t *testing.T) {
	t.Parallel()
	var nilCfg RendererConfig
	assert.NotNil(t, nilCfg.Clone())

	cfg := RendererConfig{"strict": true}
	c := cfg.Clone()
	c["strict"] = false
	assert.Equal(t, true, cfg["strict"])
}
