// Package paramstore resolves secrets from AWS SSM Parameter Store. The
// serverless entrypoint uses it to fill the environment before config.Load.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/zap"
)

// SecretKeys are the environment variables resolved from the store when
// they are not already set.
var SecretKeys = []string{
	"LLM_API_KEY",
	"SUPABASE_URL",
	"SUPABASE_ANON_KEY",
	"SUPABASE_SERVICE_ROLE_KEY",
	"SUPABASE_JWT_SECRET",
	"DATABASE_URL",
}

// ssmAPI is the subset of *ssm.Client the package needs.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// ErrNotFound is returned when the parameter does not exist.
var ErrNotFound = errors.New("paramstore: parameter not found")

// GetParameter returns the decrypted value of name.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var nf *types.ParameterNotFound
		if errors.As(err, &nf) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return aws.ToString(out.Parameter.Value), nil
}

// ExportEnv reads prefix/KEY for every key that is unset in the process
// environment and exports it. Missing parameters are skipped.
func (c *Client) ExportEnv(ctx context.Context, prefix string, keys []string, logger *zap.Logger) error {
	prefix = strings.TrimRight(prefix, "/")
	for _, key := range keys {
		if os.Getenv(key) != "" {
			continue
		}
		v, err := c.GetParameter(ctx, prefix+"/"+key)
		if errors.Is(err, ErrNotFound) {
			logger.Debug("parameter not set", zap.String("key", key))
			continue
		}
		if err != nil {
			return err
		}
		if err := os.Setenv(key, v); err != nil {
			return fmt.Errorf("paramstore: export %s: %w", key, err)
		}
		logger.Info("parameter exported", zap.String("key", key))
	}
	return nil
}
