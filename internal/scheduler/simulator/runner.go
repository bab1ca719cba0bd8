package simulator

import (
	"path/filepath"
	"strings"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	"github.com/renstrom/shortuuid"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/firstfit/internal/common/armadacontext"
	commonconfig "github.com/armadaproject/firstfit/internal/common/config"
	"github.com/armadaproject/firstfit/internal/scheduler/configuration"
	"github.com/armadaproject/firstfit/internal/scheduler/metrics"
)

// Run is one simulation together with the inputs it was created from.
type Run struct {
	SchedulingConfigPath string
	Simulator            *Simulator
	Result               *SimulationResult
}

// Options control how simulations are run.
type Options struct {
	ClusterSpecsPattern      string
	WorkloadSpecsPattern     string
	SchedulingConfigsPattern string
	MaxRounds                int
	SuppressSchedulerLogs    bool
	// If set, every round of every simulation is reported here.
	Metrics *metrics.Metrics
}

// Simulate runs a simulation for every combination of cluster, workload and scheduling config matched by the
// patterns in opts. Simulations run concurrently; the first error cancels the rest.
func Simulate(ctx *armadacontext.Context, opts Options) ([]*Run, error) {
	clusterSpecs, err := ClusterSpecsFromPattern(opts.ClusterSpecsPattern)
	if err != nil {
		return nil, err
	}
	workloadSpecs, err := WorkloadsFromPattern(opts.WorkloadSpecsPattern)
	if err != nil {
		return nil, err
	}
	schedulingConfigsByFilePath, err := SchedulingConfigsByFilePathFromPattern(opts.SchedulingConfigsPattern)
	if err != nil {
		return nil, err
	}
	if len(clusterSpecs) == 0 || len(workloadSpecs) == 0 || len(schedulingConfigsByFilePath) == 0 {
		return nil, errors.Errorf(
			"nothing to simulate: found %d cluster specs, %d workload specs and %d scheduling configs",
			len(clusterSpecs), len(workloadSpecs), len(schedulingConfigsByFilePath),
		)
	}
	schedulingConfigPaths := maps.Keys(schedulingConfigsByFilePath)
	slices.Sort(schedulingConfigPaths)

	ctx.Log.Infof("ClusterSpecs: %v", names(clusterSpecs, func(spec *ClusterSpec) string { return spec.Name }))
	ctx.Log.Infof("WorkloadSpecs: %v", names(workloadSpecs, func(spec *WorkloadSpec) string { return spec.Name }))
	ctx.Log.Infof("SchedulingConfigs: %v", schedulingConfigPaths)

	// Setup a simulator for each combination of (clusterSpec, workloadSpec, schedulingConfig).
	runs := make([]*Run, 0, len(clusterSpecs)*len(workloadSpecs)*len(schedulingConfigPaths))
	for _, clusterSpec := range clusterSpecs {
		for _, workloadSpec := range workloadSpecs {
			for _, schedulingConfigPath := range schedulingConfigPaths {
				// Each simulator initialises its workload spec, so they must not share one.
				s, err := NewSimulator(
					clusterSpec,
					cloneWorkloadSpec(workloadSpec),
					schedulingConfigsByFilePath[schedulingConfigPath],
					opts.MaxRounds,
					opts.Metrics,
				)
				if err != nil {
					return nil, errors.WithMessagef(
						err, "failed to create simulator for %s, %s and %s",
						clusterSpec.Name, workloadSpec.Name, schedulingConfigPath,
					)
				}
				s.SuppressSchedulerLogs = opts.SuppressSchedulerLogs
				runs = append(runs, &Run{SchedulingConfigPath: schedulingConfigPath, Simulator: s})
			}
		}
	}

	g, ctx := armadacontext.ErrGroup(ctx)
	for _, run := range runs {
		run := run
		g.Go(func() error {
			result, err := run.Simulator.Run(ctx)
			if err != nil {
				return err
			}
			run.Result = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

func SchedulingConfigsByFilePathFromPattern(pattern string) (map[string]configuration.SchedulingConfig, error) {
	filePaths, err := zglob.Glob(pattern)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	filePathConfigMap := make(map[string]configuration.SchedulingConfig, len(filePaths))
	for _, path := range filePaths {
		config, err := configuration.SchedulingConfigFromFilePath(path)
		if err != nil {
			return nil, err
		}
		filePathConfigMap[path] = config
	}
	return filePathConfigMap, nil
}

func ClusterSpecsFromPattern(pattern string) ([]*ClusterSpec, error) {
	filePaths, err := zglob.Glob(pattern)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ClusterSpecsFromFilePaths(filePaths)
}

func WorkloadsFromPattern(pattern string) ([]*WorkloadSpec, error) {
	filePaths, err := zglob.Glob(pattern)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return WorkloadSpecsFromFilePaths(filePaths)
}

func ClusterSpecsFromFilePaths(filePaths []string) ([]*ClusterSpec, error) {
	rv := make([]*ClusterSpec, len(filePaths))
	for i, filePath := range filePaths {
		clusterSpec, err := ClusterSpecFromFilePath(filePath)
		if err != nil {
			return nil, err
		}
		rv[i] = clusterSpec
	}
	return rv, nil
}

func WorkloadSpecsFromFilePaths(filePaths []string) ([]*WorkloadSpec, error) {
	rv := make([]*WorkloadSpec, len(filePaths))
	for i, filePath := range filePaths {
		workloadSpec, err := WorkloadSpecFromFilePath(filePath)
		if err != nil {
			return nil, err
		}
		rv[i] = workloadSpec
	}
	return rv, nil
}

func ClusterSpecFromFilePath(filePath string) (*ClusterSpec, error) {
	rv := &ClusterSpec{}
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(filePath)
	if err := v.ReadInConfig(); err != nil {
		err = errors.WithMessagef(err, "failed to read in ClusterSpec %s", filePath)
		return nil, errors.WithStack(err)
	}
	if err := v.Unmarshal(rv, commonconfig.CustomHooks...); err != nil {
		err = errors.WithMessagef(err, "failed to unmarshal ClusterSpec %s", filePath)
		return nil, errors.WithStack(err)
	}

	// If no name is provided, set it to be the filename.
	if rv.Name == "" {
		rv.Name = nameFromFilePath(filePath)
	}
	if len(rv.Resources) == 0 {
		return nil, errors.Errorf("ClusterSpec %s has no resources", filePath)
	}
	return rv, nil
}

func WorkloadSpecFromFilePath(filePath string) (*WorkloadSpec, error) {
	rv := &WorkloadSpec{}
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(filePath)
	if err := v.ReadInConfig(); err != nil {
		err = errors.WithMessagef(err, "failed to read in WorkloadSpec %s", filePath)
		return nil, errors.WithStack(err)
	}
	if err := v.Unmarshal(rv, commonconfig.CustomHooks...); err != nil {
		err = errors.WithMessagef(err, "failed to unmarshal WorkloadSpec %s", filePath)
		return nil, errors.WithStack(err)
	}

	// If no name is provided, set it to be the filename.
	if rv.Name == "" {
		rv.Name = nameFromFilePath(filePath)
	}
	initialiseWorkloadSpec(rv)

	return rv, nil
}

// initialiseWorkloadSpec generates random ids for any job templates without an explicitly set id.
func initialiseWorkloadSpec(workloadSpec *WorkloadSpec) {
	for _, jobTemplate := range workloadSpec.JobTemplates {
		if jobTemplate.Id == "" {
			jobTemplate.Id = shortuuid.New()
		}
	}
}

func cloneWorkloadSpec(workloadSpec *WorkloadSpec) *WorkloadSpec {
	rv := *workloadSpec
	rv.JobTemplates = make([]*JobTemplate, len(workloadSpec.JobTemplates))
	for i, jobTemplate := range workloadSpec.JobTemplates {
		t := *jobTemplate
		rv.JobTemplates[i] = &t
	}
	return &rv
}

func nameFromFilePath(filePath string) string {
	fileName := filepath.Base(filePath)
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

func names[T any](specs []T, name func(T) string) []string {
	rv := make([]string, len(specs))
	for i, spec := range specs {
		rv[i] = name(spec)
	}
	return rv
}
