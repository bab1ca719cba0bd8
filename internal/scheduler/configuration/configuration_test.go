package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"

	commonconfig "github.com/armadaproject/firstfit/internal/common/config"
)

func TestSchedulingConfigValidation(t *testing.T) {
	tests := map[string]struct {
		mutate  func(c *SchedulingConfig)
		wantErr bool
	}{
		"default": {
			mutate: func(c *SchedulingConfig) {},
		},
		"greediness 1": {
			mutate: func(c *SchedulingConfig) { c.Greediness = 1 },
		},
		"greediness above 1": {
			mutate:  func(c *SchedulingConfig) { c.Greediness = 1.01 },
			wantErr: true,
		},
		"negative greediness": {
			mutate:  func(c *SchedulingConfig) { c.Greediness = -0.1 },
			wantErr: true,
		},
		"zero round limit": {
			mutate:  func(c *SchedulingConfig) { c.RoundLimit = 0 },
			wantErr: true,
		},
		"arrival ordering": {
			mutate: func(c *SchedulingConfig) { c.OrderingMode = OrderingModeArrival },
		},
		"unknown ordering": {
			mutate:  func(c *SchedulingConfig) { c.OrderingMode = "random" },
			wantErr: true,
		},
		"no resource types": {
			mutate:  func(c *SchedulingConfig) { c.SupportedResourceTypes = nil },
			wantErr: true,
		},
		"unnamed resource type": {
			mutate:  func(c *SchedulingConfig) { c.SupportedResourceTypes = []ResourceType{{}} },
			wantErr: true,
		},
		"duplicate resource type": {
			mutate: func(c *SchedulingConfig) {
				c.SupportedResourceTypes = []ResourceType{{Name: "cpu"}, {Name: "cpu"}}
			},
			wantErr: true,
		},
		"negative resolution": {
			mutate: func(c *SchedulingConfig) {
				c.SupportedResourceTypes = []ResourceType{{Name: "cpu", Resolution: resource.MustParse("-1")}}
			},
			wantErr: true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			config := DefaultSchedulingConfig()
			tc.mutate(&config)
			err := commonconfig.Validate(config)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchedulingConfigFromFilePath(t *testing.T) {
	path := writeFile(t, "scheduling.yaml", `
greediness: 0.5
orderingMode: arrival
roundLimit: 10
omitPrioritizeByTempAndInput: true
supportedResourceTypes:
  - name: cpu
    resolution: 100m
  - name: nvidia.com/gpu
    resolution: 1
`)
	config, err := SchedulingConfigFromFilePath(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, config.Greediness)
	assert.Equal(t, OrderingModeArrival, config.OrderingMode)
	assert.Equal(t, 10, config.RoundLimit)
	assert.True(t, config.OmitPrioritizeByTempAndInput)
	require.Len(t, config.SupportedResourceTypes, 2)
	assert.Equal(t, "cpu", config.SupportedResourceTypes[0].Name)
	assert.True(t, resource.MustParse("100m").Equal(config.SupportedResourceTypes[0].Resolution))
	assert.Equal(t, "nvidia.com/gpu", config.SupportedResourceTypes[1].Name)
}

func TestSchedulingConfigFromFilePath_Defaults(t *testing.T) {
	path := writeFile(t, "scheduling.yaml", "greediness: 0.25\n")
	config, err := SchedulingConfigFromFilePath(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, config.Greediness)
	assert.Equal(t, OrderingModeReward, config.OrderingMode)
	assert.Equal(t, DefaultRoundLimit, config.RoundLimit)
	assert.Equal(t, DefaultResourceTypes(), config.SupportedResourceTypes)
}

func TestSchedulingConfigFromFilePath_Invalid(t *testing.T) {
	path := writeFile(t, "scheduling.yaml", "greediness: 2\n")
	_, err := SchedulingConfigFromFilePath(path)
	assert.Error(t, err)
}

func TestSchedulingConfigFromFilePath_Missing(t *testing.T) {
	_, err := SchedulingConfigFromFilePath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSimulatorConfigFromFilePath(t *testing.T) {
	path := writeFile(t, "simulator.yaml", `
metricsPort: 9000
maxRounds: 50
logging:
  level: debug
  format: json
scheduling:
  greediness: 1
  roundLimit: 3
`)
	config, err := SimulatorConfigFromFilePath(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(9000), config.MetricsPort)
	assert.Equal(t, 50, config.MaxRounds)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, 1.0, config.Scheduling.Greediness)
	assert.Equal(t, 3, config.Scheduling.RoundLimit)
	assert.Equal(t, DefaultResourceTypes(), config.Scheduling.SupportedResourceTypes)
}

func TestSimulatorConfigFromFilePath_EmptyPath(t *testing.T) {
	config, err := SimulatorConfigFromFilePath("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSimulatorConfig(), config)
}

func TestSimulatorConfigFromFilePath_InvalidLogging(t *testing.T) {
	path := writeFile(t, "simulator.yaml", "logging:\n  level: chatty\n")
	_, err := SimulatorConfigFromFilePath(path)
	assert.Error(t, err)
}

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}
