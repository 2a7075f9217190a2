package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/swarmroute/swarmroute/sched"
)

// LoadConfig overlays a YAML config file onto base. Fields absent from the
// file keep the base values, so a partial file tuning one knob is valid.
func LoadConfig(path string, base sched.Config) (sched.Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return base, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
