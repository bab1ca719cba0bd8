package configuration

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/api/resource"

	commonconfig "github.com/armadaproject/firstfit/internal/common/config"
	"github.com/armadaproject/firstfit/internal/common/logging"
)

const (
	// Candidates are considered in order of decreasing reward.
	OrderingModeReward = "reward"
	// Candidates are considered in the order the host supplied them.
	OrderingModeArrival = "arrival"

	// Used when the host does not limit the number of jobs admitted per round.
	DefaultRoundLimit = 1000

	EnvPrefix = "FIRSTFIT"
)

// SchedulingConfig controls the first-fit admission scheduler.
type SchedulingConfig struct {
	// Controls how many candidates are inspected per round, between 0 and 1.
	// A greediness of 0 inspects every candidate; a greediness of 1 inspects at most RoundLimit candidates.
	// Values in between interpolate linearly. Low values favour packing efficiency, high values scheduling latency.
	Greediness float64 `validate:"gte=0,lte=1"`
	// Either "reward" or "arrival".
	OrderingMode string `validate:"oneof=reward arrival"`
	// Maximum number of jobs admitted per round.
	RoundLimit int `validate:"gt=0"`
	// If true, jobs are prioritised by priority alone.
	// Otherwise, ties in priority are broken by the size of temporary inputs and then by the size of all inputs,
	// larger first, since temporary files should be removed as soon as possible and large inputs take longer to process.
	OmitPrioritizeByTempAndInput bool
	// Resource dimensions considered by the scheduler. Resources not listed here are ignored on the capacity side
	// and rejected on the job side.
	SupportedResourceTypes []ResourceType `validate:"required,min=1,dive"`
}

// ResourceType is a resource dimension together with the resolution at which it is tracked.
type ResourceType struct {
	// Resource name, e.g. "cpu", "memory" or "nvidia.com/gpu".
	Name string `validate:"required"`
	// Values are rounded to multiples of this; e.g. 1m for cpu or 1 for memory.
	// Zero means milli resolution.
	Resolution resource.Quantity
}

func DefaultSchedulingConfig() SchedulingConfig {
	return SchedulingConfig{
		Greediness:             0,
		OrderingMode:           OrderingModeReward,
		RoundLimit:             DefaultRoundLimit,
		SupportedResourceTypes: DefaultResourceTypes(),
	}
}

func DefaultResourceTypes() []ResourceType {
	return []ResourceType{
		{Name: "cpu", Resolution: resource.MustParse("1m")},
		{Name: "memory", Resolution: resource.MustParse("1")},
	}
}

func (c SchedulingConfig) Validate() error {
	seen := make(map[string]bool, len(c.SupportedResourceTypes))
	for _, t := range c.SupportedResourceTypes {
		if seen[t.Name] {
			return errors.Errorf("duplicate resource type %q in supportedResourceTypes", t.Name)
		}
		seen[t.Name] = true
		if t.Resolution.Sign() < 0 {
			return errors.Errorf("resolution of resource type %q must not be negative", t.Name)
		}
	}
	return nil
}

// SimulatorConfig is the configuration of the offline simulator.
type SimulatorConfig struct {
	Scheduling SchedulingConfig
	Logging    logging.Config
	// If non-zero, Prometheus metrics are served on this port.
	MetricsPort uint16
	// Simulations are abandoned after this many rounds.
	MaxRounds int `validate:"gt=0"`
}

func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Scheduling: DefaultSchedulingConfig(),
		Logging:    logging.DefaultConfig(),
		MaxRounds:  100000,
	}
}

func (c SimulatorConfig) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.Scheduling.Validate()
}

// SchedulingConfigFromFilePath reads a SchedulingConfig from a yaml file on top of the defaults.
// Values present in the file may be overridden by environment variables, e.g. FIRSTFIT_GREEDINESS.
func SchedulingConfigFromFilePath(filePath string) (SchedulingConfig, error) {
	config := DefaultSchedulingConfig()
	// Slices are merged element-wise on unmarshal, so resource types are only defaulted if the file has none.
	config.SupportedResourceTypes = nil
	if err := unmarshalFile(filePath, &config); err != nil {
		return config, err
	}
	if len(config.SupportedResourceTypes) == 0 {
		config.SupportedResourceTypes = DefaultResourceTypes()
	}
	if err := commonconfig.Validate(config); err != nil {
		commonconfig.LogValidationErrors(err)
		return config, errors.WithMessagef(err, "invalid SchedulingConfig %s", filePath)
	}
	return config, nil
}

// SimulatorConfigFromFilePath reads a SimulatorConfig from a yaml file on top of the defaults.
// An empty path returns the defaults.
func SimulatorConfigFromFilePath(filePath string) (SimulatorConfig, error) {
	config := DefaultSimulatorConfig()
	if filePath != "" {
		config.Scheduling.SupportedResourceTypes = nil
		if err := unmarshalFile(filePath, &config); err != nil {
			return config, err
		}
		if len(config.Scheduling.SupportedResourceTypes) == 0 {
			config.Scheduling.SupportedResourceTypes = DefaultResourceTypes()
		}
	}
	if err := commonconfig.Validate(config); err != nil {
		commonconfig.LogValidationErrors(err)
		return config, errors.WithMessagef(err, "invalid SimulatorConfig %s", filePath)
	}
	return config, nil
}

func unmarshalFile(filePath string, config interface{}) error {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(filePath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("::", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		err = errors.WithMessagef(err, "failed to read in %s", filepath.Base(filePath))
		return errors.WithStack(err)
	}
	if err := v.Unmarshal(config, commonconfig.CustomHooks...); err != nil {
		err = errors.WithMessagef(err, "failed to unmarshal %s", filepath.Base(filePath))
		return errors.WithStack(err)
	}
	return nil
}
