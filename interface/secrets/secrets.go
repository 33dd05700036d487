// Package secrets reads the credentials of the stores from GCP Secret Manager
package secrets

import (
	"context"
	"fmt"
	"strings"

	vkit "cloud.google.com/go/secretmanager/apiv1"
	pb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// Scheme of the references to a secret: gsm://<project>/<secret>[#<version>]
const Scheme = "gsm://"

type Client struct {
	pbc *vkit.Client
}

func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	pbc, err := vkit.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secretmanager: %w", err)
	}
	return &Client{pbc}, nil
}

type secretOpt struct {
	version string
}

type SecretOption func(s *secretOpt)

func WithVersion(v string) SecretOption {
	return func(s *secretOpt) {
		if v != "" {
			s.version = v
		}
	}
}

func (c *Client) Close() error {
	return c.pbc.Close()
}

func (c *Client) GetSecret(ctx context.Context, project, secretName string, opts ...SecretOption) ([]byte, error) {
	so := secretOpt{
		version: "latest",
	}
	for _, o := range opts {
		o(&so)
	}

	req := &pb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, secretName, so.version),
	}
	resp, err := c.pbc.AccessSecretVersion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("AccessSecretVersion(%s): %w", req.Name, err)
	}
	return resp.GetPayload().GetData(), nil
}

// Ref is a reference to a version of a secret
type Ref struct {
	Project, Secret, Version string
}

// IsRef returns true if s is a reference to a secret
func IsRef(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// ParseRef parses gsm://<project>/<secret>[#<version>]
func ParseRef(s string) (Ref, error) {
	if !IsRef(s) {
		return Ref{}, fmt.Errorf("secret reference must start with %s: %s", Scheme, s)
	}
	path, version, _ := strings.Cut(strings.TrimPrefix(s, Scheme), "#")
	project, secret, ok := strings.Cut(path, "/")
	if !ok || project == "" || secret == "" || strings.Contains(secret, "/") {
		return Ref{}, fmt.Errorf("malformed secret reference (expecting %s<project>/<secret>[#<version>]): %s", Scheme, s)
	}
	return Ref{Project: project, Secret: secret, Version: version}, nil
}

// Resolve returns value, or the payload of the secret if value is a reference (see ParseRef)
func Resolve(ctx context.Context, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	ref, err := ParseRef(value)
	if err != nil {
		return "", err
	}
	cl, err := NewClient(ctx)
	if err != nil {
		return "", err
	}
	defer cl.Close()
	b, err := cl.GetSecret(ctx, ref.Project, ref.Secret, WithVersion(ref.Version))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
