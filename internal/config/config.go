// Package config loads forclink settings from a YAML file, a .env file and
// the environment. Secrets are only read from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/kass/go-forcing-link/pkg/basins"
	"github.com/kass/go-forcing-link/pkg/grid"
	"github.com/kass/go-forcing-link/pkg/objstore"
)

// Environment variables read by Load
const (
	EnvPostGISDSN     = "FORCLINK_POSTGIS_DSN"
	EnvMinIOEndpoint  = "MINIO_ENDPOINT"
	EnvMinIOAccessKey = "MINIO_ACCESS_KEY"
	EnvMinIOSecretKey = "MINIO_SECRET_KEY"
	EnvMinIOBucket    = "MINIO_BUCKET"
	EnvMinIOUseSSL    = "MINIO_USE_SSL"
)

// Config holds the settings of one forclink run.
type Config struct {
	Basins struct {
		Path   string            `yaml:"path"`
		Fields basins.FieldNames `yaml:"fields"`
	} `yaml:"basins"`
	Grid struct {
		Path string         `yaml:"path"`
		Axes grid.AxisNames `yaml:"axes"`
	} `yaml:"grid"`
	Link struct {
		Workers    int  `yaml:"workers"`
		Exhaustive bool `yaml:"exhaustive"`
	} `yaml:"link"`
	Output struct {
		Dir      string `yaml:"dir"`
		Snapshot string `yaml:"snapshot"`
	} `yaml:"output"`
	PostGIS struct {
		Enabled bool   `yaml:"enabled"`
		DSN     string `yaml:"-"`
	} `yaml:"postgis"`
	MinIO struct {
		Enabled              bool   `yaml:"enabled"`
		Prefix               string `yaml:"prefix"`
		objstore.MinIOConfig `yaml:",inline"`
	} `yaml:"minio"`
}

// ErrMissingRequiredEnvVar reports an enabled sink whose secret environment
// variable is unset.
type ErrMissingRequiredEnvVar struct {
	Name string
}

func (e *ErrMissingRequiredEnvVar) Error() string {
	return fmt.Sprintf("required environment variable %q is not set", e.Name)
}

// Default returns the settings used when no file overrides them
func Default() *Config {
	c := &Config{}
	c.Basins.Path = "SUBID_subbasins.shp"
	c.Basins.Fields = basins.DefaultFieldNames()
	c.Grid.Axes = grid.DefaultAxisNames()
	c.Output.Dir = "."
	c.Output.Snapshot = "forclink.gob"
	c.MinIO.Prefix = "forcing-links"
	return c
}

// LoadDotEnv loads variables from file into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(file string) error {
	err := godotenv.Load(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "config: load %s", file)
	}
	return nil
}

// Load reads the YAML file at path over Default and applies the environment.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "config: read %s", path)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, eris.Wrapf(err, "config: parse %s", path)
		}
	}
	c.Basins.Fields = c.Basins.Fields.WithDefaults()
	if c.Grid.Axes.Lon == "" {
		c.Grid.Axes.Lon = grid.DefaultAxisNames().Lon
	}
	if c.Grid.Axes.Lat == "" {
		c.Grid.Axes.Lat = grid.DefaultAxisNames().Lat
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.PostGIS.DSN = os.Getenv(EnvPostGISDSN)
	if v := os.Getenv(EnvMinIOEndpoint); v != "" {
		c.MinIO.Endpoint = v
	}
	if v := os.Getenv(EnvMinIOBucket); v != "" {
		c.MinIO.Bucket = v
	}
	c.MinIO.AccessKey = os.Getenv(EnvMinIOAccessKey)
	c.MinIO.SecretKey = os.Getenv(EnvMinIOSecretKey)
	if v := os.Getenv(EnvMinIOUseSSL); v != "" {
		c.MinIO.UseSSL = strings.EqualFold(v, "true")
	}
}

// Validate checks that every enabled sink has its connection settings.
func (c *Config) Validate() error {
	if c.Link.Workers < 0 {
		return fmt.Errorf("config: link.workers must not be negative, got %d", c.Link.Workers)
	}
	if c.PostGIS.Enabled && c.PostGIS.DSN == "" {
		return &ErrMissingRequiredEnvVar{Name: EnvPostGISDSN}
	}
	if c.MinIO.Enabled {
		required := []struct{ name, value string }{
			{EnvMinIOEndpoint, c.MinIO.Endpoint},
			{EnvMinIOAccessKey, c.MinIO.AccessKey},
			{EnvMinIOSecretKey, c.MinIO.SecretKey},
			{EnvMinIOBucket, c.MinIO.Bucket},
		}
		for _, r := range required {
			if r.value == "" {
				return &ErrMissingRequiredEnvVar{Name: r.name}
			}
		}
	}
	return nil
}
