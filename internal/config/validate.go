package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Rule definitions get their own
// deeper validation when the rule catalog is built.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOrganize(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if len(c.Paths.SourceDirs) == 0 {
		return errors.New("paths.source_dirs must list at least one folder")
	}
	if c.Paths.DestinationDir == "" {
		return errors.New("paths.destination_dir must be set")
	}
	for _, src := range c.Paths.SourceDirs {
		if src == c.Paths.DestinationDir {
			return fmt.Errorf("paths.destination_dir must differ from source folder %q", src)
		}
	}
	return nil
}

func (c *Config) validateOrganize() error {
	switch c.Organize.CollisionPolicy {
	case "rename", "skip", "overwrite":
		return nil
	default:
		return fmt.Errorf("organize.collision_policy must be one of rename, skip, overwrite (got %q)", c.Organize.CollisionPolicy)
	}
}
