package main

import (
	"strings"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig_default(t *testing.T) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(defaultConfig)))

	c, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, c.HTTP.ConnectTimeout)
	assert.Equal(t, 30*time.Second, c.HTTP.ReadTimeout)
	assert.Equal(t, 64*datasize.MB, c.HTTP.MaxSize)
	assert.Equal(t, 4, c.HTTP.Parallel)
	assert.True(t, c.Engine.Enabled)
	assert.True(t, c.Engine.UseDefaults)
	assert.Empty(t, c.Engine.CustomRules)
	assert.Equal(t, "./data", c.Storage.Dir)

	require.Len(t, c.Sources, 3)
	assert.Len(t, c.EnabledSources(), 2)
	assert.Equal(t, "adaway", c.Sources[1].Name)
}

func TestDecodeConfig_overrides(t *testing.T) {
	const text = `
[http]
read_timeout = "5s"
max_size = "512KB"

[engine]
enabled = false
custom_rules = ["||ads.example^", "*track*"]
`
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(text)))

	c, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, c.HTTP.ConnectTimeout)
	assert.Equal(t, 5*time.Second, c.HTTP.ReadTimeout)
	assert.Equal(t, 512*datasize.KB, c.HTTP.MaxSize)
	assert.False(t, c.Engine.Enabled)
	assert.True(t, c.Engine.UseDefaults)
	assert.Equal(t, []string{"||ads.example^", "*track*"}, c.Engine.CustomRules)
	assert.Empty(t, c.Sources)
}
