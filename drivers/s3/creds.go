package s3

import (
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go/aws/credentials/stscreds"
	"github.com/aws/aws-sdk-go/aws/ec2metadata"
	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/arbiter-go/storage/awsini"
	"github.com/arbiter-go/storage/errs"
)

// Config is the s3 section of the registry's configuration document, per
// spec.md section 6.
type Config struct {
	Access   string `json:"access"`
	Secret   string `json:"secret"`
	Token    string `json:"token"`
	Region   string `json:"region"`
	Endpoint string `json:"endpoint"`
	Verbose  bool   `json:"verbose"`
	Profile  string `json:"-"`
}

// resolveCredentials walks the credential chain in this order: explicit
// config, environment, shared credentials file, EC2 instance metadata, STS
// AssumeRoleWithWebIdentity. The chain has no ECS container-credentials
// step. aws-sdk-go supplies
// the environment and instance-metadata/STS steps; the shared credentials
// file is read directly through awsini rather than aws-sdk-go's own
// SharedCredentialsProvider — see DESIGN.md for why the SDK's own HTTP
// client and signer are never used beyond this narrow discovery role.
func resolveCredentials(cfg Config) (Credentials, error) {
	if cfg.Access != "" {
		return Credentials{AccessKeyID: cfg.Access, SecretAccessKey: cfg.Secret, SessionToken: cfg.Token}, nil
	}

	envChain := credentials.NewChainCredentials([]credentials.Provider{&credentials.EnvProvider{}})
	if value, err := envChain.Get(); err == nil {
		return Credentials{AccessKeyID: value.AccessKeyID, SecretAccessKey: value.SecretAccessKey, SessionToken: value.SessionToken}, nil
	}

	if creds, ok := readSharedCredentialsFile(sharedProfile(cfg.Profile)); ok {
		return creds, nil
	}

	sess, sessErr := session.NewSession()
	if sessErr != nil {
		return Credentials{}, errs.Wrap(errs.ConfigError, "s3.resolveCredentials", "", sessErr)
	}

	meta := ec2metadata.New(sess)
	ec2Chain := credentials.NewCredentials(&ec2rolecreds.EC2RoleProvider{Client: meta})
	if value, err := ec2Chain.Get(); err == nil {
		return Credentials{AccessKeyID: value.AccessKeyID, SecretAccessKey: value.SecretAccessKey, SessionToken: value.SessionToken}, nil
	}

	if roleARN := os.Getenv("AWS_ROLE_ARN"); roleARN != "" {
		webIdentityPath := os.Getenv("AWS_WEB_IDENTITY_TOKEN_FILE")
		stsChain := stscreds.NewWebIdentityCredentials(sess, roleARN, "arbiter", webIdentityPath)
		if value, err := stsChain.Get(); err == nil {
			return Credentials{AccessKeyID: value.AccessKeyID, SecretAccessKey: value.SecretAccessKey, SessionToken: value.SessionToken}, nil
		}
	}

	return Credentials{}, errs.New(errs.ConfigError, "s3.resolveCredentials", "no credentials found in chain")
}

func sharedProfile(profile string) string {
	if profile == "" || profile == "default" {
		return "default"
	}
	return profile
}

// readSharedCredentialsFile parses ~/.aws/credentials (or $AWS_SHARED_CREDENTIALS_FILE)
// through awsini and extracts the named profile's keys, returning ok=false
// if the file or the profile section is absent.
func readSharedCredentialsFile(profile string) (Credentials, bool) {
	path := os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Credentials{}, false
		}
		path = filepath.Join(home, ".aws", "credentials")
	}

	f, err := os.Open(path)
	if err != nil {
		return Credentials{}, false
	}
	defer f.Close()

	doc, err := awsini.Parse(f)
	if err != nil {
		return Credentials{}, false
	}
	section := doc.Section(profile)
	if section == nil {
		return Credentials{}, false
	}
	access := section["aws_access_key_id"]
	secret := section["aws_secret_access_key"]
	if access == "" || secret == "" {
		return Credentials{}, false
	}
	return Credentials{AccessKeyID: access, SecretAccessKey: secret, SessionToken: section["aws_session_token"]}, true
}
