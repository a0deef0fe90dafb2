package dispatch

import (
	"github.com/safing/entropool/config"
)

// Configuration Keys.
const (
	CfgMaxConcurrentJobsKey = "dispatch/max_concurrent_jobs"
	CfgJobTimeoutKey        = "dispatch/job_timeout"
	CfgEnginePathKey        = "dispatch/engine_path"
	CfgJobRetentionKey      = "dispatch/job_retention"
)

var (
	maxConcurrentJobs config.IntOption
	jobTimeout        config.IntOption
	enginePath        config.StringOption
	jobRetention      config.IntOption
)

func registerConfig() error {
	err := config.Register(&config.Option{
		Name:            "Concurrent Jobs",
		Key:             CfgMaxConcurrentJobsKey,
		Description:     "How many computation jobs may run at the same time. Further jobs are queued.",
		OptType:         config.OptTypeInt,
		ExpertiseLevel:  config.ExpertiseLevelExpert,
		RequiresRestart: true,
		DefaultValue:    DefaultMaxConcurrent,
		ValidationRegex: "^[1-9][0-9]*$",
	})
	if err != nil {
		return err
	}
	maxConcurrentJobs = config.Concurrent.GetAsInt(CfgMaxConcurrentJobsKey, DefaultMaxConcurrent)

	err = config.Register(&config.Option{
		Name:            "Job Timeout",
		Key:             CfgJobTimeoutKey,
		Description:     "Maximum run time of a computation job, in seconds.",
		OptType:         config.OptTypeInt,
		ExpertiseLevel:  config.ExpertiseLevelExpert,
		RequiresRestart: true,
		DefaultValue:    int64(DefaultJobTimeout.Seconds()),
		ValidationRegex: "^[1-9][0-9]*$",
	})
	if err != nil {
		return err
	}
	jobTimeout = config.Concurrent.GetAsInt(CfgJobTimeoutKey, int64(DefaultJobTimeout.Seconds()))

	err = config.Register(&config.Option{
		Name:            "Computation Engine",
		Key:             CfgEnginePathKey,
		Description:     "Path to an executable that runs computation jobs. If empty, the built-in scatter engine is used.",
		OptType:         config.OptTypeString,
		ExpertiseLevel:  config.ExpertiseLevelDeveloper,
		RequiresRestart: true,
		DefaultValue:    "",
	})
	if err != nil {
		return err
	}
	enginePath = config.Concurrent.GetAsString(CfgEnginePathKey, "")

	err = config.Register(&config.Option{
		Name:            "Job Retention",
		Key:             CfgJobRetentionKey,
		Description:     "How long finished jobs and their results stay available, in seconds.",
		OptType:         config.OptTypeInt,
		ExpertiseLevel:  config.ExpertiseLevelExpert,
		RequiresRestart: true,
		DefaultValue:    int64(DefaultRetention.Seconds()),
		ValidationRegex: "^[1-9][0-9]*$",
	})
	if err != nil {
		return err
	}
	jobRetention = config.Concurrent.GetAsInt(CfgJobRetentionKey, int64(DefaultRetention.Seconds()))

	return nil
}
