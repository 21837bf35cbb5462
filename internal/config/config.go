package config

import (
	"context"
	"fmt"
	"time"

	"github.com/KingRyuK69/AWS-S3-RS-Lambda/internal/dataloader"
	"github.com/Netflix/go-env"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/pkg/errors"
)

// Executor names accepted in EXECUTOR.
const (
	ExecutorDataAPI = "data-api"
	ExecutorSQL     = "sql"
)

// Config is read from the function environment once per cold start.
type Config struct {
	Executor string `env:"EXECUTOR,default=data-api"`

	ClusterIdentifier          string `env:"CLUSTER_IDENTIFIER"`
	ClusterIdentifierParameter string `env:"CLUSTER_IDENTIFIER_PARAMETER"`
	IAMRole                    string `env:"IAM_ROLE"`
	IAMRoleParameter           string `env:"IAM_ROLE_PARAMETER"`

	TableNameKey     string `env:"TABLE_NAME_KEY,default=TABLENAME"`
	Permissive       bool   `env:"PERMISSIVE_COPY,default=false"`
	AbortedIsSuccess bool   `env:"TREAT_ABORTED_AS_SUCCESS,default=false"`
	VerifyObjects    bool   `env:"VERIFY_OBJECTS,default=false"`

	PollInterval       string `env:"POLL_INTERVAL,default=1s"`
	PollMaxInterval    string `env:"POLL_MAX_INTERVAL,default=10s"`
	PollMaxAttempts    int    `env:"POLL_MAX_ATTEMPTS,default=300"`
	PollTimeout        string `env:"POLL_TIMEOUT,default=14m"`
	PollDeadlineMargin string `env:"POLL_DEADLINE_MARGIN,default=2s"`

	// Direct connection settings, only read when Executor is "sql".
	ClusterEndpoint          string `env:"CLUSTER_ENDPOINT"`
	ClusterEndpointParameter string `env:"CLUSTER_ENDPOINT_PARAMETER"`
	Password                 string `env:"DB_PASSWORD"`
	PasswordParameter        string `env:"PASSWORD_PARAMETER"`
	DBPort                   int    `env:"DB_PORT,default=5439"`
	DBName                   string `env:"DBNAME"`
	DBUser                   string `env:"REDSHIFT_USER"`
}

// Load reads and validates the configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every value the selected executor needs has a source.
func (c *Config) Validate() error {
	if _, err := c.PollConfig(); err != nil {
		return err
	}
	if c.TableNameKey == "" {
		return errors.New("TABLE_NAME_KEY must not be empty")
	}
	if c.IAMRole == "" && c.IAMRoleParameter == "" {
		return errors.New("one of IAM_ROLE or IAM_ROLE_PARAMETER is required")
	}
	switch c.Executor {
	case ExecutorDataAPI:
		if c.ClusterIdentifier == "" && c.ClusterIdentifierParameter == "" {
			return errors.New("one of CLUSTER_IDENTIFIER or CLUSTER_IDENTIFIER_PARAMETER is required")
		}
	case ExecutorSQL:
		if c.ClusterEndpoint == "" && c.ClusterEndpointParameter == "" {
			return errors.New("one of CLUSTER_ENDPOINT or CLUSTER_ENDPOINT_PARAMETER is required")
		}
		if c.Password == "" && c.PasswordParameter == "" {
			return errors.New("one of DB_PASSWORD or PASSWORD_PARAMETER is required")
		}
		if c.DBName == "" || c.DBUser == "" {
			return errors.New("DBNAME and REDSHIFT_USER are required for the sql executor")
		}
	default:
		return errors.Errorf("unknown executor %q", c.Executor)
	}
	return nil
}

// ResolveParameters fills values configured by SSM parameter name.
func (c *Config) ResolveParameters(ctx context.Context, svc ssmiface.SSMAPI) error {
	var err error
	if c.IAMRole == "" {
		if c.IAMRole, err = getParameter(ctx, svc, c.IAMRoleParameter); err != nil {
			return err
		}
	}
	switch c.Executor {
	case ExecutorDataAPI:
		if c.ClusterIdentifier == "" {
			if c.ClusterIdentifier, err = getParameter(ctx, svc, c.ClusterIdentifierParameter); err != nil {
				return err
			}
		}
	case ExecutorSQL:
		if c.ClusterEndpoint == "" {
			if c.ClusterEndpoint, err = getParameter(ctx, svc, c.ClusterEndpointParameter); err != nil {
				return err
			}
		}
		if c.Password == "" {
			if c.Password, err = getParameter(ctx, svc, c.PasswordParameter); err != nil {
				return err
			}
		}
	}
	return nil
}

// PostgresDSN is the lib/pq connection string for the sql executor.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=require",
		c.ClusterEndpoint,
		c.DBPort,
		c.DBUser,
		c.Password,
		c.DBName)
}

// PollConfig parses the poll settings.
func (c *Config) PollConfig() (dataloader.PollConfig, error) {
	var (
		pc  dataloader.PollConfig
		err error
	)
	if pc.Interval, err = positiveDuration("POLL_INTERVAL", c.PollInterval); err != nil {
		return pc, err
	}
	if pc.MaxInterval, err = positiveDuration("POLL_MAX_INTERVAL", c.PollMaxInterval); err != nil {
		return pc, err
	}
	if pc.Timeout, err = positiveDuration("POLL_TIMEOUT", c.PollTimeout); err != nil {
		return pc, err
	}
	if pc.DeadlineMargin, err = positiveDuration("POLL_DEADLINE_MARGIN", c.PollDeadlineMargin); err != nil {
		return pc, err
	}
	if c.PollMaxAttempts < 1 {
		return pc, errors.Errorf("POLL_MAX_ATTEMPTS must be at least 1, got %d", c.PollMaxAttempts)
	}
	if pc.MaxInterval < pc.Interval {
		return pc, errors.New("POLL_MAX_INTERVAL must not be shorter than POLL_INTERVAL")
	}
	pc.MaxAttempts = uint(c.PollMaxAttempts)
	return pc, nil
}

// Options are the dispatcher settings this deployment runs with.
func (c *Config) Options() dataloader.Options {
	return dataloader.Options{
		TableNameKey:     c.TableNameKey,
		IAMRole:          c.IAMRole,
		Permissive:       c.Permissive,
		AbortedIsSuccess: c.AbortedIsSuccess,
	}
}

func getParameter(ctx context.Context, svc ssmiface.SSMAPI, name string) (string, error) {
	rsp, err := svc.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", errors.Wrapf(err, "get parameter %s", name)
	}
	if rsp.Parameter == nil || aws.StringValue(rsp.Parameter.Value) == "" {
		return "", errors.Errorf("parameter %s is empty", name)
	}
	return aws.StringValue(rsp.Parameter.Value), nil
}

func positiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s", key)
	}
	if d <= 0 {
		return 0, errors.Errorf("%s must be positive, got %s", key, value)
	}
	return d, nil
}
