// Package credentials persists aggregation API access tokens per user.
package credentials

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when no credential is stored for an id.
	ErrNotFound = errors.New("credential not found")
	// ErrEmptyID is returned when an empty id is passed to Get or Put.
	ErrEmptyID = errors.New("credential id is empty")
)

// Credential is an access token issued for one linked item.
type Credential struct {
	AccessToken string    `json:"access_token"`
	ItemID      string    `json:"item_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Repository stores credentials keyed by user id.
type Repository interface {
	Get(ctx context.Context, id string) (Credential, error)
	Put(ctx context.Context, id string, cred Credential) error
	Close() error
}
