package job

import (
	"fmt"
	"os"
	"time"

	"github.com/10amc-2/disorder/internal/utils"
	"gopkg.in/yaml.v3"
)

// ManifestName is the provenance file written into every run directory.
const ManifestName = "run.yaml"

// Manifest records how a run directory was generated.
type Manifest struct {
	Version   string    `yaml:"version"`
	Generated time.Time `yaml:"generated"`

	Index     int    `yaml:"index"`
	Seed      int    `yaml:"seed"`
	Structure string `yaml:"structure"`
	Template  string `yaml:"template"`
	Config    string `yaml:"config"`

	Resources ManifestResources `yaml:"resources"`
	Tier      string            `yaml:"tier"`
	Queue     string            `yaml:"queue,omitempty"`

	JobName string `yaml:"job_name"`
	Script  string `yaml:"script"`
	Log     string `yaml:"log"`
	Output  string `yaml:"output"`
}

// ManifestResources is the resolved resource block of a Manifest.
type ManifestResources struct {
	Mode        string `yaml:"mode"`
	Memory      string `yaml:"memory"`
	Walltime    string `yaml:"walltime"`
	Cores       int    `yaml:"cores"`
	Hostname    string `yaml:"hostname,omitempty"`
	NodeClass   string `yaml:"node_class,omitempty"`
	Reservation string `yaml:"reservation,omitempty"`
}

// WriteManifest writes m to path as YAML.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, utils.PermFile); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}
