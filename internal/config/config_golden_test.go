package config

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// TestConfigDefaultsGoldenFile tests that our defaults match the golden file
func TestConfigDefaultsGoldenFile(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.ErrorLevel)
	SetLogger(logger)

	goldenData, err := os.ReadFile("testdata/defaults.yaml")
	if err != nil {
		t.Fatalf("Failed to read golden defaults file: %v", err)
	}

	var goldenConfig Config
	if err := yaml.Unmarshal(goldenData, &goldenConfig); err != nil {
		t.Fatalf("Failed to parse golden config: %v", err)
	}

	testConfig := &Config{}
	ApplyDefaults(testConfig)

	if *testConfig != goldenConfig {
		t.Errorf("Defaults drifted from testdata/defaults.yaml:\n got  %+v\n want %+v", *testConfig, goldenConfig)
	}
}

func TestInvalidConfigValidation(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.ErrorLevel)
	SetLogger(logger)

	testCases := []struct {
		name        string
		filename    string
		expectError bool
		errorText   string
	}{
		{
			name:        "Invalid version",
			filename:    "testdata/invalid_version.yaml",
			expectError: true,
			errorText:   "unsupported configuration version",
		},
		{
			name:        "Valid defaults file",
			filename:    "testdata/defaults.yaml",
			expectError: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			originalAppConfig := AppConfig
			defer func() { AppConfig = originalAppConfig }()

			err := LoadConfig(tc.filename)
			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tc.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
			if tc.expectError && err != nil && tc.errorText != "" {
				if !strings.Contains(err.Error(), tc.errorText) {
					t.Errorf("Expected error to contain %q, got %q", tc.errorText, err.Error())
				}
			}
		})
	}
}
