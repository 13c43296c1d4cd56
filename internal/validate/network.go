package validate

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/google/go-github/v30/github"
	"github.com/leakgate/leakgate/internal/redact"
	"github.com/leakgate/leakgate/internal/types"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userAgent = "leakgate-validator"

// githubLive calls GET /user with the token.
type githubLive struct {
	hc      *http.Client
	baseURL *url.URL
}

// GitHubPATLive authenticates the token against the GitHub API. A nil client
// and empty baseURL select the public API.
func GitHubPATLive(hc *http.Client, baseURL string) Validator {
	g := &githubLive{hc: hc}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		g.baseURL, _ = url.Parse(baseURL)
	}
	return g
}

func (*githubLive) Name() string    { return "github_pat_live" }
func (*githubLive) Kinds() []string { return []string{"github_pat"} }
func (*githubLive) Network() bool   { return true }

func (g *githubLive) Validate(ctx context.Context, f types.Finding) (Outcome, error) {
	if g.hc != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.hc)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: f.Secret})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	client.UserAgent = userAgent
	if g.baseURL != nil {
		client.BaseURL = g.baseURL
	}
	user, resp, err := client.Users.Get(ctx, "")
	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusOK && err == nil:
			return valid("authenticated with GitHub", "login "+redact.Mask(user.GetLogin())), nil
		case resp.StatusCode == http.StatusUnauthorized:
			return invalid("rejected by GitHub (401)"), nil
		default:
			return indeterminate(fmt.Sprintf("GitHub returned %d", resp.StatusCode)), nil
		}
	}
	return Outcome{}, err
}

// STSAPI is the subset of the STS client the AWS validator needs.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, opts ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// awsLive calls sts:GetCallerIdentity with the static key pair.
type awsLive struct {
	newClient func(accessKey, secretKey string) STSAPI
}

// AWSKeypairLive signs a GetCallerIdentity request with the pair. A nil
// factory builds a real STS client in us-east-1.
func AWSKeypairLive(newClient func(accessKey, secretKey string) STSAPI) Validator {
	if newClient == nil {
		newClient = func(ak, sk string) STSAPI {
			return sts.New(sts.Options{
				Region:      "us-east-1",
				Credentials: credentials.NewStaticCredentialsProvider(ak, sk, ""),
			})
		}
	}
	return &awsLive{newClient: newClient}
}

func (*awsLive) Name() string    { return "aws_keypair_live" }
func (*awsLive) Kinds() []string { return []string{"aws_keypair"} }
func (*awsLive) Network() bool   { return true }

func (a *awsLive) Validate(ctx context.Context, f types.Finding) (Outcome, error) {
	ak, sk := splitAWSPair(f)
	if ak == "" || sk == "" {
		return indeterminate("no paired key half to sign with"), nil
	}
	out, err := a.newClient(ak, sk).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "InvalidClientTokenId", "SignatureDoesNotMatch":
				return invalid("rejected by STS (" + apiErr.ErrorCode() + ")"), nil
			}
			return indeterminate("STS error " + apiErr.ErrorCode()), nil
		}
		return Outcome{}, err
	}
	return valid("authenticated with STS", "account "+redact.Mask(aws.ToString(out.Account))+" arn "+redact.Mask(aws.ToString(out.Arn))), nil
}

// gcpLive exchanges a signed JWT for an access token.
type gcpLive struct {
	hc *http.Client
}

const gcpScope = "https://www.googleapis.com/auth/cloud-platform"

// GCPServiceAccountLive performs the OAuth2 JWT-bearer exchange against the
// key's token_uri.
func GCPServiceAccountLive(hc *http.Client) Validator { return &gcpLive{hc: hc} }

func (*gcpLive) Name() string    { return "gcp_sa_key_live" }
func (*gcpLive) Kinds() []string { return []string{"gcp_service_account_key"} }
func (*gcpLive) Network() bool   { return true }

func (g *gcpLive) Validate(ctx context.Context, f types.Finding) (Outcome, error) {
	var k serviceAccountKey
	if err := json.Unmarshal([]byte(f.Secret), &k); err != nil || k.ClientEmail == "" {
		return invalid("key document unusable"), nil
	}
	if block, _ := pem.Decode([]byte(k.PrivateKey)); block == nil {
		return invalid("private key is not PEM"), nil
	}
	cfg, err := google.JWTConfigFromJSON([]byte(f.Secret), gcpScope)
	if err != nil {
		return invalid("key document unusable"), nil
	}
	if g.hc != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.hc)
	}
	tok, err := cfg.TokenSource(ctx).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			code := re.Response.StatusCode
			if code >= 400 && code < 500 {
				reason := "token exchange rejected"
				if re.ErrorCode != "" {
					reason += " (" + re.ErrorCode + ")"
				}
				return invalid(reason), nil
			}
			return indeterminate(fmt.Sprintf("token endpoint returned %d", code)), nil
		}
		return Outcome{}, err
	}
	return valid("issued an access token", "client "+redact.Mask(cfg.Email)+" token "+redact.Mask(tok.AccessToken)), nil
}

// azureLive issues HEAD against the SAS URL itself.
type azureLive struct {
	hc *http.Client
}

// AzureSASLive probes the storage URL. The signature is self-authorizing so
// no SDK credential is involved.
func AzureSASLive(hc *http.Client) Validator {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &azureLive{hc: hc}
}

func (*azureLive) Name() string    { return "azure_sas_live" }
func (*azureLive) Kinds() []string { return []string{"azure_storage_sas"} }
func (*azureLive) Network() bool   { return true }

func (a *azureLive) Validate(ctx context.Context, f types.Finding) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.Secret, nil)
	if err != nil {
		return invalid("not a usable URL"), nil
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := a.hc.Do(req)
	if err != nil {
		return Outcome{}, err
	}
	defer resp.Body.Close()
	host := req.URL.Host
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return valid("storage accepted the signature", "host "+host), nil
	case resp.StatusCode == http.StatusNotFound:
		// authenticated, the resource itself is gone
		return valid("signature accepted, resource missing", "host "+host), nil
	case resp.StatusCode == http.StatusForbidden:
		return invalid("storage rejected the signature (403)"), nil
	}
	return indeterminate(fmt.Sprintf("storage returned %d", resp.StatusCode)), nil
}
