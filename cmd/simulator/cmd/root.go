package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/armadaproject/firstfit/internal/common"
	"github.com/armadaproject/firstfit/internal/common/app"
	"github.com/armadaproject/firstfit/internal/common/logging"
	"github.com/armadaproject/firstfit/internal/scheduler/configuration"
	"github.com/armadaproject/firstfit/internal/scheduler/metrics"
	"github.com/armadaproject/firstfit/internal/scheduler/simulator"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "simulator",
		Short:        "Simulate first-fit admission of workloads onto clusters.",
		RunE:         runSimulations,
		SilenceUsage: true,
	}
	cmd.Flags().String("clusters", "", "Glob pattern specifying cluster specs to simulate.")
	cmd.Flags().String("workloads", "", "Glob pattern specifying workloads to simulate.")
	cmd.Flags().String("configs", "", "Glob pattern specifying scheduling configs to simulate.")
	cmd.Flags().String("config", "", "Path to a simulator config file. Flags take precedence over values in this file.")
	cmd.Flags().Bool("showSchedulerLogs", false, "Show scheduler logs.")
	cmd.Flags().Int("maxRounds", 0, "Abandon a simulation after this many rounds. Uses the configured value if 0.")
	cmd.Flags().Uint16("metricsPort", 0, "Serve Prometheus metrics on this port. Disabled if 0.")
	cmd.Flags().String("logFormat", "", "Log format, either text or json.")
	cmd.Flags().String("logLevel", "", "Log level, e.g. info or debug.")
	_ = cmd.MarkFlagRequired("clusters")
	_ = cmd.MarkFlagRequired("workloads")
	_ = cmd.MarkFlagRequired("configs")
	return cmd
}

func runSimulations(cmd *cobra.Command, args []string) error {
	opts, config, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := logging.ConfigureApplicationLogging(logrus.StandardLogger(), config.Logging); err != nil {
		return err
	}

	ctx := app.CreateContextWithShutdown()
	ctx.Log.Info("First-fit simulator")

	opts.Metrics = metrics.New()
	if config.MetricsPort != 0 {
		if err := prometheus.Register(opts.Metrics); err != nil {
			return err
		}
		shutdownMetricServer := common.ServeMetrics(ctx, config.MetricsPort)
		defer shutdownMetricServer()
	}

	runs, err := simulator.Simulate(ctx, opts)
	if err != nil {
		logging.WithStacktrace(ctx.Log, err).Error("simulation failed")
		return err
	}
	for _, run := range runs {
		ctx.Log.WithFields(logrus.Fields{
			"simulation":       run.Simulator.Id,
			"cluster":          run.Simulator.ClusterSpec.Name,
			"workload":         run.Simulator.WorkloadSpec.Name,
			"schedulingConfig": run.SchedulingConfigPath,
		}).Infof("Simulation result: %s", run.Result)
	}
	return nil
}

func optionsFromFlags(cmd *cobra.Command) (simulator.Options, configuration.SimulatorConfig, error) {
	var opts simulator.Options
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return opts, configuration.SimulatorConfig{}, err
	}
	config, err := configuration.SimulatorConfigFromFilePath(configPath)
	if err != nil {
		return opts, config, err
	}

	if opts.ClusterSpecsPattern, err = cmd.Flags().GetString("clusters"); err != nil {
		return opts, config, err
	}
	if opts.WorkloadSpecsPattern, err = cmd.Flags().GetString("workloads"); err != nil {
		return opts, config, err
	}
	if opts.SchedulingConfigsPattern, err = cmd.Flags().GetString("configs"); err != nil {
		return opts, config, err
	}
	showSchedulerLogs, err := cmd.Flags().GetBool("showSchedulerLogs")
	if err != nil {
		return opts, config, err
	}
	opts.SuppressSchedulerLogs = !showSchedulerLogs

	maxRounds, err := cmd.Flags().GetInt("maxRounds")
	if err != nil {
		return opts, config, err
	}
	if maxRounds > 0 {
		config.MaxRounds = maxRounds
	}
	opts.MaxRounds = config.MaxRounds

	if cmd.Flags().Changed("metricsPort") {
		if config.MetricsPort, err = cmd.Flags().GetUint16("metricsPort"); err != nil {
			return opts, config, err
		}
	}
	logFormat, err := cmd.Flags().GetString("logFormat")
	if err != nil {
		return opts, config, err
	}
	if logFormat != "" {
		config.Logging.Format = logFormat
	}
	logLevel, err := cmd.Flags().GetString("logLevel")
	if err != nil {
		return opts, config, err
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	return opts, config, nil
}
