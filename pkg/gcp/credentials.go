package gcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
)

// Credentials selects how Google Cloud clients authenticate. A full service
// account JSON wins over an email/private key pair. With neither set the
// clients fall back to Application Default Credentials.
type Credentials struct {
	JSON        string
	ClientEmail string
	PrivateKey  string
	ProjectID   string
}

const tokenURI = "https://oauth2.googleapis.com/token"

func (c Credentials) ClientOptions() ([]option.ClientOption, error) {
	if c.JSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.JSON))}, nil
	}
	if c.ClientEmail == "" && c.PrivateKey == "" {
		return nil, nil
	}
	if c.ClientEmail == "" || c.PrivateKey == "" {
		return nil, errors.New("both GOOGLE_CLOUD_CLIENT_EMAIL and GOOGLE_CLOUD_PRIVATE_KEY are required")
	}

	b, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   c.ProjectID,
		"client_email": c.ClientEmail,
		// keys pasted into env files usually carry literal \n sequences
		"private_key": strings.ReplaceAll(c.PrivateKey, `\n`, "\n"),
		"token_uri":   tokenURI,
	})
	if err != nil {
		return nil, fmt.Errorf("encode service account: %w", err)
	}
	return []option.ClientOption{option.WithCredentialsJSON(b)}, nil
}
