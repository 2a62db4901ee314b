package domain

import (
	"regexp"
	"time"
)

// Tier sizes a tenant; it drives the per-tenant enqueue rate limit.
type Tier string

const (
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
)

func (t Tier) IsValid() bool {
	switch t {
	case TierSmall, TierMedium, TierLarge:
		return true
	}
	return false
}

// TenantStatus tracks the provisioning state machine:
// provisioning -> active -> tearing_down. A tenant stuck in "provisioning"
// signals a partial onboarding that needs an operator teardown.
type TenantStatus string

const (
	TenantProvisioning TenantStatus = "provisioning"
	TenantActive       TenantStatus = "active"
	TenantTearingDown  TenantStatus = "tearing_down"
)

// Tenant is the control-plane record for one isolated customer workspace.
// The identifier doubles as the tenant's database name and is immutable
// once created; changing it requires re-onboarding.
type Tenant struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name"`
	Tier        Tier         `json:"tier"`
	Status      TenantStatus `json:"status"`
	DBUser      string       `json:"db_user"`
	DBSecret    string       `json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// tenantIDPattern also constrains what may appear in DDL: the identifier is
// interpolated into CREATE DATABASE / DROP DATABASE statements, which do not
// accept bind parameters.
var tenantIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidateTenantID rejects identifiers that are not safe Postgres names.
func ValidateTenantID(id string) error {
	if id == "" {
		return ErrMissingTenant
	}
	if !tenantIDPattern.MatchString(id) {
		return ErrInvalidTenantID
	}
	return nil
}

// OnboardRequest is the inbound payload for tenant onboarding.
type OnboardRequest struct {
	TenantID    string `json:"tenant_id"`
	DisplayName string `json:"display_name"`
	Tier        Tier   `json:"tier"`
}

func (r *OnboardRequest) Validate() error {
	if err := ValidateTenantID(r.TenantID); err != nil {
		return err
	}
	if r.DisplayName == "" {
		return ErrInvalidDisplayName
	}
	if !r.Tier.IsValid() {
		return ErrInvalidTier
	}
	return nil
}

// ConnectionInfo describes how to reach a tenant's database.
// Used by operational tooling; the secret is never included.
type ConnectionInfo struct {
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
}
