// Package specyaml parses the YAML job-spec alternative to a JSON job
// submission body, mirroring the structure a user would otherwise POST
// directly as JobSpec.
package specyaml

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/clusterml/master/internal/model"
)

// document is the on-disk YAML shape. It nests under a top-level "job"
// key so a submitted file reads naturally as a job description rather
// than a bare object.
type document struct {
	Job struct {
		Name        string                    `yaml:"name"`
		Labels      map[string]string         `yaml:"labels"`
		Image       string                    `yaml:"image"`
		Command     []string                  `yaml:"command"`
		Args        []string                  `yaml:"args"`
		Resources   resourcesDoc              `yaml:"resources"`
		Env         []envDoc                  `yaml:"env"`
		Volumes     []volumeDoc               `yaml:"volumes"`
		Distributed *distributedDoc           `yaml:"distributed,omitempty"`
	} `yaml:"job"`
}

type resourcesDoc struct {
	CPU    string `yaml:"cpu"`
	Memory string `yaml:"memory"`
	GPU    int    `yaml:"gpu"`
}

type envDoc struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type volumeDoc struct {
	Name      string `yaml:"name"`
	MountPath string `yaml:"mountPath"`
	Source    string `yaml:"source"`
}

type distributedDoc struct {
	Workers int    `yaml:"workers"`
	Type    string `yaml:"type"`
}

// Parse parses a YAML job spec document into a JobCreate ready for the
// job Supervisor. The raw text is preserved on the returned value so it
// can be stored alongside the job for audit purposes.
func Parse(specYAML string) (model.JobCreate, error) {
	var doc document
	if err := yaml.Unmarshal([]byte(specYAML), &doc); err != nil {
		return model.JobCreate{}, fmt.Errorf("specyaml: failed to parse YAML: %w", err)
	}

	env := make([]model.EnvVar, 0, len(doc.Job.Env))
	for _, e := range doc.Job.Env {
		env = append(env, model.EnvVar{Name: e.Name, Value: e.Value})
	}

	volumes := make([]model.VolumeMount, 0, len(doc.Job.Volumes))
	for _, v := range doc.Job.Volumes {
		volumes = append(volumes, model.VolumeMount{Name: v.Name, MountPath: v.MountPath, Source: v.Source})
	}

	var distributed *model.DistributedConfig
	if doc.Job.Distributed != nil {
		distributed = &model.DistributedConfig{
			Workers: doc.Job.Distributed.Workers,
			Type:    doc.Job.Distributed.Type,
		}
	}

	spec := &model.JobSpec{
		Image:   doc.Job.Image,
		Command: doc.Job.Command,
		Args:    doc.Job.Args,
		Resources: model.ResourceRequirements{
			CPU:    doc.Job.Resources.CPU,
			Memory: doc.Job.Resources.Memory,
			GPU:    doc.Job.Resources.GPU,
		},
		Env:         env,
		Volumes:     volumes,
		Distributed: distributed,
	}

	return model.JobCreate{
		Name:     doc.Job.Name,
		Labels:   doc.Job.Labels,
		Spec:     spec,
		SpecYAML: specYAML,
	}, nil
}
