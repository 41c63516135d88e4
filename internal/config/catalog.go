package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"site-monitor/simulator/internal/domain"
	"site-monitor/simulator/internal/engine"
)

// Site describes a monitored construction site. Only Name feeds the engine;
// the rest is metadata for map renderers.
type Site struct {
	Name     string  `yaml:"name" json:"name"`
	Label    string  `yaml:"label" json:"label"`
	District string  `yaml:"district" json:"district"`
	Lat      float64 `yaml:"lat" json:"lat"`
	Lon      float64 `yaml:"lon" json:"lon"`
}

type Credential struct {
	Username string      `yaml:"username"`
	Password string      `yaml:"password"`
	Role     domain.Role `yaml:"role"`
	Site     string      `yaml:"site,omitempty"`
}

// Catalog is the YAML-configurable part of the simulation.
type Catalog struct {
	Sites       []Site        `yaml:"sites"`
	Credentials []Credential  `yaml:"credentials"`
	Policy      engine.Policy `yaml:"policy"`
}

func DefaultCatalog() *Catalog {
	return &Catalog{
		Sites: []Site{
			{Name: "Site_Alpha", Label: "Anand Vihar", District: "East Delhi", Lat: 28.6469, Lon: 77.3164},
			{Name: "Site_Beta", Label: "ITO Junction", District: "Central Delhi", Lat: 28.6289, Lon: 77.2411},
			{Name: "Site_Gamma", Label: "Dwarka Sector 8", District: "South-West Delhi", Lat: 28.5921, Lon: 77.046},
		},
		Credentials: []Credential{
			{Username: "GOV", Password: "GOV@123", Role: domain.RoleGov},
			{Username: "Site_Alpha", Password: "alpha@123", Role: domain.RoleSite, Site: "Site_Alpha"},
			{Username: "Site_Beta", Password: "beta@123", Role: domain.RoleSite, Site: "Site_Beta"},
			{Username: "Site_Gamma", Password: "gamma@123", Role: domain.RoleSite, Site: "Site_Gamma"},
		},
		Policy: engine.DefaultPolicy(),
	}
}

// LoadCatalog reads a YAML catalog. An empty path yields the defaults.
// Keys missing from the file keep their default values.
func LoadCatalog(path string) (*Catalog, error) {
	c := DefaultCatalog()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return parseCatalog(raw, c)
}

// catalogSections records which top-level sections a file sets.
type catalogSections struct {
	Sites       *yaml.Node `yaml:"sites"`
	Credentials *yaml.Node `yaml:"credentials"`
}

func parseCatalog(raw []byte, c *Catalog) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	var set catalogSections
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	// New sites without new credentials keep the default table minus the
	// logins of sites that no longer exist.
	if set.Sites != nil && set.Credentials == nil {
		c.Credentials = c.pruneCredentials()
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Validate() error {
	if len(c.Sites) == 0 {
		return errors.New("catalog: at least one site is required")
	}
	names := make(map[string]bool, len(c.Sites))
	for _, s := range c.Sites {
		if s.Name == "" {
			return errors.New("catalog: site name is required")
		}
		if names[s.Name] {
			return fmt.Errorf("catalog: duplicate site %q", s.Name)
		}
		names[s.Name] = true
	}
	users := make(map[string]bool, len(c.Credentials))
	for _, cr := range c.Credentials {
		if cr.Username == "" {
			return errors.New("catalog: credential username is required")
		}
		if users[cr.Username] {
			return fmt.Errorf("catalog: duplicate credential %q", cr.Username)
		}
		users[cr.Username] = true
		switch cr.Role {
		case domain.RoleGov:
		case domain.RoleSite:
			if !names[cr.Site] {
				return fmt.Errorf("catalog: credential %q refers to unknown site %q", cr.Username, cr.Site)
			}
		default:
			return fmt.Errorf("catalog: credential %q has unknown role %q", cr.Username, cr.Role)
		}
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}

func (c *Catalog) pruneCredentials() []Credential {
	names := make(map[string]bool, len(c.Sites))
	for _, s := range c.Sites {
		names[s.Name] = true
	}
	out := make([]Credential, 0, len(c.Credentials))
	for _, cr := range c.Credentials {
		if cr.Role == domain.RoleSite && !names[cr.Site] {
			continue
		}
		out = append(out, cr)
	}
	return out
}

func (c *Catalog) SiteNames() []string {
	out := make([]string, len(c.Sites))
	for i, s := range c.Sites {
		out[i] = s.Name
	}
	return out
}
