package portals

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/expanova/cita-watcher/common"
	"github.com/rs/zerolog/log"
)

// portalFile is the on-disk representation of a portal override.
type portalFile struct {
	ID           ID               `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	BaseURL      string           `json:"base_url"`
	HostPatterns []string         `json:"host_patterns"`
	RateLimitMs  int64            `json:"rate_limit_ms"`
	Selectors    Selectors        `json:"selectors"`
	Navigation   []NavigationStep `json:"navigation"`
	TaskTypes    []string         `json:"task_types"`
}

func (f portalFile) toPortal() Portal {
	return Portal{
		ID:           f.ID,
		Name:         f.Name,
		Description:  f.Description,
		BaseURL:      f.BaseURL,
		HostPatterns: f.HostPatterns,
		RateLimit:    time.Duration(f.RateLimitMs) * time.Millisecond,
		Selectors:    f.Selectors,
		Navigation:   f.Navigation,
		TaskTypes:    f.TaskTypes,
	}
}

// ParsePortals decodes a JSON array of portal descriptors and validates each.
func ParsePortals(raw []byte) ([]Portal, error) {
	var files []portalFile
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal portals: %v", common.ErrInvalidConfig, err)
	}

	portals := make([]Portal, 0, len(files))
	for _, f := range files {
		p := f.toPortal()
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%w: portal %q: %v", common.ErrInvalidConfig, f.ID, err)
		}
		portals = append(portals, p)
	}
	return portals, nil
}

// LoadFile registers the portal descriptors found in path on top of r,
// replacing built-in entries with the same id.
func LoadFile(r *Registry, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read portals file: %w", err)
	}

	portals, err := ParsePortals(raw)
	if err != nil {
		return err
	}

	for _, p := range portals {
		if err := r.Register(p); err != nil {
			return err
		}
		log.Info().Str("portal", string(p.ID)).Str("file", path).Msg("Portal configuration overridden")
	}
	return nil
}
