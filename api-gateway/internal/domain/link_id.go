package domain

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var linkIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// NewLinkID returns 22 URL-safe characters carrying the 122 random bits of a v4 UUID.
func NewLinkID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

func ValidateLinkID(id string) error {
	if !linkIDPattern.MatchString(id) {
		return &ValidationError{Field: "linkId", Err: ErrInvalidLinkID}
	}
	return nil
}

func CheckoutURL(baseURL, linkID string) string {
	return strings.TrimRight(baseURL, "/") + "/checkout/" + linkID
}
