package harvest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ipedsetl/internal/registry"
)

// Job validation errors.
var (
	ErrNoEntries = errors.New("job must list at least one entry")
	ErrNoYears   = errors.New("job entry must list at least one year")
)

// Job describes a batch of harvest+load work, usually read from a YAML file
// checked in next to the scheduler that invokes the pipeline.
type Job struct {
	Entries []JobEntry `yaml:"entries"`
}

// JobEntry names one dataset and the years to process for it.
type JobEntry struct {
	Dataset string `yaml:"dataset"`
	Years   []int  `yaml:"years"`
}

// LoadJob reads and validates a job file. Unknown datasets fail here, before
// any network or database work starts.
func LoadJob(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("read job file: %w", err)
	}

	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("parse job file %s: %w", path, err)
	}
	if err := job.Validate(); err != nil {
		return Job{}, fmt.Errorf("invalid job file %s: %w", path, err)
	}
	return job, nil
}

// Validate checks the job against the dataset registry.
func (j Job) Validate() error {
	if len(j.Entries) == 0 {
		return ErrNoEntries
	}
	for _, entry := range j.Entries {
		if _, err := registry.Lookup(entry.Dataset); err != nil {
			return err
		}
		if len(entry.Years) == 0 {
			return fmt.Errorf("%w: dataset %s", ErrNoYears, entry.Dataset)
		}
	}
	return nil
}
