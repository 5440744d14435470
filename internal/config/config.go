// Package config loads the querycost configuration: a YAML file overlaid with
// QUERYCOST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	complexity "github.com/hanpama/querycost/internal/complexity"
)

const envPrefix = "QUERYCOST"

// Estimator kinds accepted in the estimators section.
const (
	KindDirective = "directive"
	KindFieldCost = "fieldCost"
	KindFixed     = "fixed"
)

type Config struct {
	Schema     SchemaConfig      `yaml:"schema"`
	Limits     LimitsConfig      `yaml:"limits"`
	Estimators []EstimatorConfig `yaml:"estimators" ignored:"true" validate:"required,min=1,dive"`
	Server     ServerConfig      `yaml:"server"`
	OTel       OTelConfig        `yaml:"otel" envconfig:"OTEL"`
	Log        LogConfig         `yaml:"log"`
}

type SchemaConfig struct {
	// Paths are SDL files or directories walked for *.graphql files.
	Paths []string `yaml:"paths" validate:"required,min=1,dive,required"`
	// CostDirective names the cost annotation directive.
	CostDirective string `yaml:"costDirective" split_words:"true"`
}

type LimitsConfig struct {
	MaximumComplexity float64 `yaml:"maximumComplexity" split_words:"true" validate:"gt=0"`
	MaximumNodes      int     `yaml:"maximumNodes" split_words:"true" validate:"gte=0"`
}

// EstimatorConfig declares one link of the estimator chain.
type EstimatorConfig struct {
	Kind string `yaml:"kind" validate:"required,oneof=directive fieldCost fixed"`
	// Name is the directive read by a directive estimator.
	Name string `yaml:"name"`
	// Value is the per-field cost of a fixed estimator.
	Value float64 `yaml:"value" validate:"gte=0"`
	// Costs are the per-field costs of a fieldCost estimator, keyed Type.field.
	Costs map[string]complexity.FieldCost `yaml:"costs"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	GRPCAddr     string        `yaml:"grpcAddr" envconfig:"GRPC_ADDR"`
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
	Pretty       bool          `yaml:"pretty"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes" split_words:"true" validate:"gte=0"`
	CORSOrigins  []string      `yaml:"corsOrigins" envconfig:"CORS_ORIGINS"`
	// Upstream receives accepted GraphQL requests. Without one, /graphql
	// answers with the analysis only.
	Upstream string `yaml:"upstream" validate:"omitempty,url"`
	// Watch reloads the schema when its files change.
	Watch bool `yaml:"watch"`
}

type OTelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Default returns the configuration used for everything a file leaves unset.
func Default() *Config {
	return &Config{
		Schema: SchemaConfig{CostDirective: "complexity"},
		Limits: LimitsConfig{
			MaximumComplexity: 1000,
			MaximumNodes:      complexity.DefaultMaximumNodes,
		},
		Estimators: []EstimatorConfig{
			{Kind: KindDirective},
			{Kind: KindFixed, Value: 1},
		},
		Server: ServerConfig{
			Addr:         ":8080",
			Timeout:      10 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		OTel: OTelConfig{Service: "querycost"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// QUERYCOST_* environment variables and the overrides, in that order, and
// validates the result. An empty path skips the file.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	conf := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("couldn't read config: %w", err)
		}
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, fmt.Errorf("couldn't unmarshal config: %w", err)
		}
	}
	if err := envconfig.Process(envPrefix, conf); err != nil {
		return nil, fmt.Errorf("failed to process config env vars: %w", err)
	}
	for _, o := range overrides {
		o(conf)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

var validate = validator.New()

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			result = multierror.Append(result, fmt.Errorf("%s: failed %q validation", fe.Namespace(), fe.Tag()))
		}
	}
	for i, e := range c.Estimators {
		if e.Kind == KindFieldCost && len(e.Costs) == 0 {
			result = multierror.Append(result, fmt.Errorf("estimators[%d]: fieldCost estimator needs costs", i))
		}
	}
	return result.ErrorOrNil()
}

// Build turns the estimators section into an estimator chain. Directive
// estimators without a name read costDirective.
func Build(estimators []EstimatorConfig, costDirective string) ([]complexity.Estimator, error) {
	chain := make([]complexity.Estimator, 0, len(estimators))
	for i, e := range estimators {
		switch e.Kind {
		case KindDirective:
			name := e.Name
			if name == "" {
				name = costDirective
			}
			chain = append(chain, complexity.Directive(name))
		case KindFieldCost:
			chain = append(chain, complexity.FieldCosts(e.Costs))
		case KindFixed:
			chain = append(chain, complexity.Fixed(e.Value))
		default:
			return nil, fmt.Errorf("estimators[%d]: unknown kind %q", i, e.Kind)
		}
	}
	return chain, nil
}

// Rule returns the complexity rule configuration described by c.
func (c *Config) Rule() (complexity.Config, error) {
	chain, err := Build(c.Estimators, c.Schema.CostDirective)
	if err != nil {
		return complexity.Config{}, err
	}
	return complexity.Config{
		Estimators:        chain,
		MaximumComplexity: c.Limits.MaximumComplexity,
		MaximumNodes:      c.Limits.MaximumNodes,
	}, nil
}
