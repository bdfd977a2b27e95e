package quota

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// limitsFile is the on-disk shape of a tenant limits file: a flat list,
// one entry per tenant, mirroring TenantLimits.
type limitsFile struct {
	Tenants []TenantLimits `yaml:"tenants"`
}

// LoadLimitsFile reads a YAML file of per-tenant limits and returns
// them, for callers that want to seed a Store from configuration
// instead of calling SetLimits in code. A missing path is not an
// error: it returns an empty slice, matching config.Load's treatment
// of an absent config file.
func LoadLimitsFile(path string) ([]TenantLimits, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path) //#nosec G304 -- operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("quota: read limits file: %w", err)
	}

	var parsed limitsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("quota: parse limits file: %w", err)
	}
	return parsed.Tenants, nil
}

// SeedLimits applies every TenantLimits in limits to s.
func (s *Store) SeedLimits(limits []TenantLimits) {
	for _, tl := range limits {
		s.SetLimits(tl)
	}
}
