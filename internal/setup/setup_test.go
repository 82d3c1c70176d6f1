// internal/setup/setup_test.go
package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedPrompter replays canned answers in order.
type scriptedPrompter struct {
	answers []string
	asked   []string
}

func (p *scriptedPrompter) Ask(prompt string) (string, error) {
	p.asked = append(p.asked, prompt)
	if len(p.answers) == 0 {
		return "", nil
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func newTestResolver(answers []string, ports []string) (*Resolver, *scriptedPrompter) {
	prompter := &scriptedPrompter{answers: answers}
	return NewResolver(prompter, ports, zap.NewNop()), prompter
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveFromFile(t *testing.T) {
	path := writeConfigFile(t, `{"port": "COM7", "scan_by_file": true, "time_out": 0.2}`)
	resolver, _ := newTestResolver(nil, nil)

	config, err := resolver.Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, DeviceConfig{Port: "COM7", ScanByFile: true, TimeOut: 0.2}, config)
}

func TestResolveFromFileMissingKeyKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `{"port": "COM7", "scan_by_file": true}`)
	resolver, _ := newTestResolver(nil, nil)

	config, err := resolver.Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDeviceConfig(), config)
}

func TestResolveFromFileExtraKeyKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `{"port": "COM7", "scan_by_file": true, "time_out": 0.2, "extra": 1}`)
	resolver, _ := newTestResolver(nil, nil)

	config, err := resolver.Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDeviceConfig(), config)
}

func TestResolveFromFileUnreadableKeepsDefaults(t *testing.T) {
	resolver, _ := newTestResolver(nil, nil)

	config, err := resolver.Resolve(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDeviceConfig(), config)
}

func TestResolveFromFileMalformedKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `{not json`)
	resolver, _ := newTestResolver(nil, nil)

	config, err := resolver.Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDeviceConfig(), config)
}

func TestResolveGuided(t *testing.T) {
	resolver, prompter := newTestResolver(
		[]string{"n", "7", "y"},
		[]string{"COM3", "COM7"},
	)

	config, err := resolver.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, DeviceConfig{Port: "COM7", ScanByFile: true, TimeOut: 0.05}, config)
	require.Len(t, prompter.asked, 3)
	assert.Equal(t, "Enter the port number: COM", prompter.asked[1])
}

func TestResolveGuidedUnavailablePort(t *testing.T) {
	resolver, _ := newTestResolver(
		[]string{"n", "9"},
		[]string{"COM3", "COM7"},
	)

	_, err := resolver.Resolve("")
	require.Error(t, err)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "port", configErr.Field)
	assert.Equal(t, "COM9", configErr.Value)
}

func TestResolveGuidedInvalidAnswer(t *testing.T) {
	resolver, _ := newTestResolver([]string{"maybe"}, []string{"COM3"})

	_, err := resolver.Resolve("")
	require.Error(t, err)

	var configErr *ConfigurationError
	assert.ErrorAs(t, err, &configErr)
}

func TestAskYesNo(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
		valid  bool
	}{
		{"y", true, true},
		{"Y", true, true},
		{" n ", false, true},
		{"yes", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		resolver, _ := newTestResolver([]string{tt.answer}, nil)
		got, err := resolver.AskYesNo("Continue (y/n): ")
		if tt.valid {
			require.NoError(t, err, "answer %q", tt.answer)
			assert.Equal(t, tt.want, got, "answer %q", tt.answer)
		} else {
			assert.Error(t, err, "answer %q", tt.answer)
		}
	}
}

func TestDumpConfig(t *testing.T) {
	dir := t.TempDir()
	config := DeviceConfig{Port: "COM7", ScanByFile: true, TimeOut: 0.2}

	path, err := DumpConfig(config, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded DeviceConfig
	require.NoError(t, json.Unmarshal(raw, &loaded))
	assert.Equal(t, config, loaded)
}
