package config

import (
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	ServerHost string `koanf:"server_host" default:"0.0.0.0"`
	ServerPort int    `koanf:"server_port" default:"3689"`

	// DropRoot is the directory dropped paths are resolved against.
	DropRoot               string `koanf:"drop_root" validate:"required"`
	BatchSize              int    `koanf:"batch_size" default:"100" validate:"min=1"`
	MaterializeConcurrency int    `koanf:"materialize_concurrency" default:"8" validate:"min=0"`

	S3Bucket    string `koanf:"s3_bucket"`
	S3Region    string `koanf:"s3_region" default:"us-east-1"`
	S3Endpoint  string `koanf:"s3_endpoint"`
	S3AccessKey string `koanf:"s3_access_key"`
	S3SecretKey string `koanf:"s3_secret_key"`
	S3Prefix    string `koanf:"s3_prefix"`
}

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/dropzone.yaml"
)

// New loads the config from struct defaults, then the YAML file named by
// CONFIG_FILE (if it exists), then environment variables named after the
// upper-cased keys.
func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load config file %s", configFile)
		}
	}

	known := keys()
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := known[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config that doesn't touch the environment.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.ServerHost = "127.0.0.1"
	cfg.DropRoot = os.TempDir()
	return cfg
}

// S3Enabled reports whether a bucket has been configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.WithStack(err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		key := keyFor(fe.StructField())
		desc := strings.ToUpper(key) + " (" + key + ")"
		if fe.Tag() == "required" {
			missing = append(missing, desc)
		} else {
			invalid = append(invalid, desc)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return errors.Errorf("invalid config: %s", strings.Join(invalid, ", "))
}

// keys returns every koanf key Config understands.
func keys() map[string]struct{} {
	t := reflect.TypeOf(Config{})
	out := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("koanf"); tag != "" {
			out[tag] = struct{}{}
		}
	}
	return out
}

func keyFor(field string) string {
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if !ok {
		return field
	}
	return f.Tag.Get("koanf")
}

// EnvVars lists the environment variables New reads, sorted.
func EnvVars() []string {
	known := keys()
	vars := make([]string, 0, len(known))
	for k := range known {
		vars = append(vars, strings.ToUpper(k))
	}
	sort.Strings(vars)
	return vars
}
