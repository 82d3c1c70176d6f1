// internal/setup/setup.go
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// DeviceConfig is the bus configuration triple. It is the one piece of
// configuration that keeps the instrument-side JSON contract: a config
// file must carry exactly these keys or it is rejected wholesale.
type DeviceConfig struct {
	Port       string  `json:"port"`
	ScanByFile bool    `json:"scan_by_file"`
	TimeOut    float64 `json:"time_out"`
}

// DefaultDeviceConfig returns the built-in bus configuration.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Port:       "COM1",
		ScanByFile: false,
		TimeOut:    0.05,
	}
}

// deviceConfigKeys is the exact key set a config file must carry.
var deviceConfigKeys = []string{"port", "scan_by_file", "time_out"}

// ConfigurationError reports invalid interactive input or an
// unavailable port. The embedding caller decides whether it is fatal.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %q (%s)", e.Field, e.Value, e.Reason)
}

// Prompter asks one question on the console and returns the raw answer.
type Prompter interface {
	Ask(prompt string) (string, error)
}

// Resolver merges the default bus configuration with either a guided
// prompt sequence or a file-supplied document. Exactly one path runs
// per call, selected by whether a file path was supplied.
type Resolver struct {
	prompter       Prompter
	availablePorts []string
	logger         *zap.Logger
}

// NewResolver creates a configuration resolver. availablePorts is the
// live enumeration the guided path validates against.
func NewResolver(prompter Prompter, availablePorts []string, logger *zap.Logger) *Resolver {
	return &Resolver{
		prompter:       prompter,
		availablePorts: availablePorts,
		logger:         logger.With(zap.String("component", "setup")),
	}
}

// Resolve returns the effective bus configuration. With a file path the
// file path runs; a malformed file degrades to the defaults with a
// warning. Without a file path the guided console sequence runs;
// invalid input surfaces as a ConfigurationError.
func (r *Resolver) Resolve(configFile string) (DeviceConfig, error) {
	if configFile != "" {
		return r.resolveFromFile(configFile), nil
	}
	return r.resolveGuided()
}

// resolveFromFile loads the configuration document and requires its key
// set to exactly equal the default key set. Any mismatch rejects the
// whole file and retains the defaults.
func (r *Resolver) resolveFromFile(path string) DeviceConfig {
	defaults := DefaultDeviceConfig()

	r.logger.Info("Configuring bus from file", zap.String("path", path))

	raw, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("Failed to read configuration file, using defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return defaults
	}

	var document map[string]json.RawMessage
	if err := json.Unmarshal(raw, &document); err != nil {
		r.logger.Warn("Failed to parse configuration file, using defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return defaults
	}

	if !hasExactKeys(document, deviceConfigKeys) {
		r.logger.Error("Configuration file keys are invalid or incomplete, using defaults",
			zap.String("path", path),
			zap.Strings("expected_keys", deviceConfigKeys),
		)
		return defaults
	}

	var config DeviceConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		r.logger.Warn("Failed to decode configuration file, using defaults",
			zap.String("path", path),
			zap.Error(err),
		)
		return defaults
	}

	r.logger.Info("Bus configuration loaded from file",
		zap.String("port", config.Port),
		zap.Bool("scan_by_file", config.ScanByFile),
		zap.Float64("time_out", config.TimeOut),
	)
	return config
}

// hasExactKeys reports whether the document's key set equals want.
func hasExactKeys(document map[string]json.RawMessage, want []string) bool {
	if len(document) != len(want) {
		return false
	}
	for _, key := range want {
		if _, ok := document[key]; !ok {
			return false
		}
	}
	return true
}

// resolveGuided walks the interactive prompt sequence: open the system
// device manager, pick a port, choose the scan mode.
func (r *Resolver) resolveGuided() (DeviceConfig, error) {
	config := DefaultDeviceConfig()

	r.logger.Info("Configuring bus by guided setup")

	openManager, err := r.AskYesNo("Open the system device management 'devmgmt.msc' (y/n): ")
	if err != nil {
		return config, err
	}
	if openManager {
		if err := OpenSystemDeviceManager(); err != nil {
			r.logger.Warn("Failed to open system device management", zap.Error(err))
		}
	}

	suffix, err := r.prompter.Ask("Enter the port number: COM")
	if err != nil {
		return config, fmt.Errorf("port prompt failed: %w", err)
	}
	config.Port = "COM" + strings.TrimSpace(suffix)

	if !r.portAvailable(config.Port) {
		return config, &ConfigurationError{
			Field:  "port",
			Value:  config.Port,
			Reason: fmt.Sprintf("not among available ports %v", r.availablePorts),
		}
	}
	r.logger.Info("Bus port selected", zap.String("port", config.Port))

	scanByFile, err := r.AskYesNo("Scan devices by the file (y) / Scan devices from address ID 0 to 255 (n): ")
	if err != nil {
		return config, err
	}
	config.ScanByFile = scanByFile

	return config, nil
}

// portAvailable checks the selected port against the live enumeration.
func (r *Resolver) portAvailable(port string) bool {
	for _, available := range r.availablePorts {
		if available == port {
			return true
		}
	}
	return false
}

// AskYesNo asks one yes/no question. Anything outside {y, n} is a
// ConfigurationError.
func (r *Resolver) AskYesNo(prompt string) (bool, error) {
	answer, err := r.prompter.Ask(prompt)
	if err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y":
		return true, nil
	case "n":
		return false, nil
	default:
		return false, &ConfigurationError{
			Field:  "answer",
			Value:  answer,
			Reason: "it can only be 'y' or 'n'",
		}
	}
}

// ConfirmContinue asks whether to keep running after the scan.
func (r *Resolver) ConfirmContinue() (bool, error) {
	return r.AskYesNo("Continue (y/n): ")
}

// ConfigFileName is the resolved-configuration dump written to the
// output directory after a guided setup.
const ConfigFileName = "SensoSysConfigs.json"

// DumpConfig persists the resolved configuration for traceability.
func DumpConfig(config DeviceConfig, dir string) (string, error) {
	raw, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal configuration: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write configuration dump: %w", err)
	}
	return path, nil
}

// OpenSystemDeviceManager pops the OS device manager so the operator
// can look up the adapter's port. Only meaningful on Windows.
func OpenSystemDeviceManager() error {
	if runtime.GOOS != "windows" {
		return fmt.Errorf("system device management is only available on windows")
	}
	return exec.Command("cmd", "/C", "start", "devmgmt.msc").Start()
}
