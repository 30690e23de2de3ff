package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fdb")
	c, err := LoadConfigFrom(dir)
	require.NoError(t, err)
	require.Nil(t, c.PassSignals)
	require.Equal(t, DefaultMaxExamineBytes, c.MaxExamine())
	require.False(t, c.DisableASLR)

	buf, err := os.ReadFile(filepath.Join(dir, configFile))
	require.NoError(t, err)
	require.Contains(t, string(buf), "# disassemble-flavor: intel")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	data := `aliases:
  continue: ["go"]
pass-signals: []
disassemble-flavor: gnu
max-examine-bytes: 64
disable-aslr: true
prompt-color: 34
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte(data), 0600))
	c, err := LoadConfigFrom(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"go"}, c.Aliases["continue"])
	require.NotNil(t, c.PassSignals)
	require.Empty(t, c.PassSignals)
	require.Equal(t, "gnu", c.DisassembleFlavor)
	require.Equal(t, 64, c.MaxExamine())
	require.True(t, c.DisableASLR)
	require.Equal(t, 34, c.PromptColor)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte("pass-signals: [a, b\n"), 0600))
	_, err := LoadConfigFrom(dir)
	require.Error(t, err)
}

func TestSaveConfig(t *testing.T) {
	dir := t.TempDir()
	n := 16
	require.NoError(t, SaveConfig(dir, &Config{PassSignals: []int{10}, MaxExamineBytes: &n}))
	c, err := LoadConfigFrom(dir)
	require.NoError(t, err)
	require.Equal(t, []int{10}, c.PassSignals)
	require.Equal(t, 16, c.MaxExamine())
}

func TestGetConfigFilePath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	p, err := GetConfigFilePath(configFile)
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdg/fdb/config.yml", p)
}
