package options

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// ErrNoCredential is returned when none of the credential sources is configured.
var ErrNoCredential = errors.New("no credential configured")

// CredentialKeys names the option keys that can carry one credential.
type CredentialKeys struct {
	Direct       string // credential value itself
	SecretFile   string // path to a JSON secrets file
	SecretName   string // key inside the secrets file
	SSMParameter string // SSM Parameter Store name
}

// SlackToken is the key set for the Slack bot token.
var SlackToken = CredentialKeys{
	Direct:       "slack-token",
	SecretFile:   "slack-secret-file",
	SecretName:   "slack-token-name",
	SSMParameter: "slack-token-ssm-parameter",
}

// LarkAppSecret is the key set for the Lark app secret.
var LarkAppSecret = CredentialKeys{
	Direct:       "lark-app-secret",
	SecretFile:   "lark-secret-file",
	SecretName:   "lark-app-secret-name",
	SSMParameter: "lark-app-secret-ssm-parameter",
}

// ParameterGetter is the part of the SSM client used to read a credential.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveCredential returns the credential described by keys.
// Priority order:
//  1. the direct option
//  2. the secrets file plus name
//  3. the SSM parameter, read with decryption
//
// newSSM is only called when the SSM source is the one in use.
func ResolveCredential(ctx context.Context, opts Options, keys CredentialKeys, newSSM func(context.Context) (ParameterGetter, error)) (string, error) {
	if v := opts.Lookup(keys.Direct); v != "" {
		log.Debug().Str("source", keys.Direct).Msg("Using credential from options")
		return v, nil
	}

	if path := opts.Lookup(keys.SecretFile); path != "" {
		name, err := opts.String(keys.SecretName)
		if err != nil {
			return "", err
		}
		secrets, err := ReadSecretFile(path)
		if err != nil {
			return "", err
		}
		log.Info().Str("file", path).Str("name", name).Msg("Reading credential from secret file")
		raw, ok := secrets[name]
		if !ok {
			return "", fmt.Errorf("%w: %s not found in %s", ErrMissingKey, name, path)
		}
		v, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("secret %s in %s must be a string, got %T", name, path, raw)
		}
		if v == "" {
			return "", fmt.Errorf("%w: %s is empty in %s", ErrMissingKey, name, path)
		}
		return v, nil
	}

	if param := opts.Lookup(keys.SSMParameter); param != "" {
		if newSSM == nil {
			return "", fmt.Errorf("%s is set but no SSM client is available", keys.SSMParameter)
		}
		client, err := newSSM(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to create SSM client: %w", err)
		}
		start := time.Now()
		out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(param),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return "", fmt.Errorf("failed to read %s from SSM: %w", param, err)
		}
		if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
			return "", fmt.Errorf("SSM parameter %s has no value", param)
		}
		log.Debug().Str("param", param).Dur("elapsed", time.Since(start)).Msg("Credential loaded from SSM")
		return aws.ToString(out.Parameter.Value), nil
	}

	return "", fmt.Errorf("%w: set %s, %s and %s, or %s",
		ErrNoCredential, keys.Direct, keys.SecretFile, keys.SecretName, keys.SSMParameter)
}

// ReadSecretFile loads a JSON object of credential names to values. Values are
// not type-checked here; callers check the entry they read.
// Relative paths resolve against the working directory.
func ReadSecretFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}
	var secrets map[string]any
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("secret file %s is not a JSON object: %w", path, err)
	}
	if secrets == nil {
		return nil, fmt.Errorf("secret file %s is not a JSON object", path)
	}
	return secrets, nil
}
