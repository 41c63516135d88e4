package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"site-monitor/simulator/internal/config"
	"site-monitor/simulator/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized")
)

// KeyLookup resolves an API key to a grant ("gov" or
// "site:<name>"). An empty result means the key is unknown.
type KeyLookup interface {
	GetAPIKey(ctx context.Context, apiKey string) (string, error)
}

type cacheEntry struct {
	principal domain.Principal
	expiresAt time.Time
}

type credential struct {
	password  string
	principal domain.Principal
}

// Authenticator checks the static credential table and resolves bearer
// tokens. It is a lookup table, not a security boundary.
type Authenticator struct {
	credentials map[string]credential
	staticKeys  map[string]bool
	sessions    sync.Map
	keys        KeyLookup
	ttl         time.Duration
	now         func() time.Time
}

func NewAuthenticator(cfg *config.Config, catalog *config.Catalog, keys KeyLookup) *Authenticator {
	creds := make(map[string]credential, len(catalog.Credentials))
	for _, c := range catalog.Credentials {
		creds[c.Username] = credential{
			password: c.Password,
			principal: domain.Principal{
				Username: c.Username,
				Role:     c.Role,
				Site:     c.Site,
			},
		}
	}

	staticKeys := make(map[string]bool, len(cfg.ValidAPIKeys))
	for _, k := range cfg.ValidAPIKeys {
		if k != "" {
			staticKeys[k] = true
		}
	}

	return &Authenticator{
		credentials: creds,
		staticKeys:  staticKeys,
		keys:        keys,
		ttl:         time.Duration(cfg.SessionTTLSeconds) * time.Second,
		now:         time.Now,
	}
}

// Login checks the credential table and opens a session.
func (a *Authenticator) Login(username, password string) (string, domain.Principal, error) {
	c, ok := a.credentials[username]
	if !ok || c.password != password {
		return "", domain.Principal{}, ErrInvalidCredentials
	}
	token := uuid.NewString()
	a.sessions.Store(token, cacheEntry{
		principal: c.principal,
		expiresAt: a.now().Add(a.ttl),
	})
	return token, c.principal, nil
}

func (a *Authenticator) Logout(token string) {
	a.sessions.Delete(token)
}

// Validate resolves a bearer token to a principal.
func (a *Authenticator) Validate(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, ErrUnauthorized
	}

	// Level 0: static config keys grant government access
	if a.staticKeys[token] {
		return domain.Principal{Username: "api", Role: domain.RoleGov}, nil
	}

	// Level 1: in-memory sessions and cached keys
	if raw, ok := a.sessions.Load(token); ok {
		entry := raw.(cacheEntry)
		if a.now().Before(entry.expiresAt) {
			return entry.principal, nil
		}
		a.sessions.Delete(token)
	}

	// Level 2: Redis API keys
	if a.keys == nil {
		return domain.Principal{}, ErrUnauthorized
	}
	grant, err := a.keys.GetAPIKey(ctx, token)
	if err != nil || grant == "" {
		return domain.Principal{}, ErrUnauthorized
	}
	p, ok := ParsePrincipal(grant)
	if !ok {
		return domain.Principal{}, ErrUnauthorized
	}
	a.sessions.Store(token, cacheEntry{
		principal: p,
		expiresAt: a.now().Add(a.ttl),
	})
	return p, nil
}

// ParsePrincipal decodes "gov" or "site:<name>".
func ParsePrincipal(grant string) (domain.Principal, bool) {
	if grant == string(domain.RoleGov) {
		return domain.Principal{Username: "api", Role: domain.RoleGov}, true
	}
	site, ok := strings.CutPrefix(grant, string(domain.RoleSite)+":")
	if !ok || site == "" {
		return domain.Principal{}, false
	}
	return domain.Principal{Username: site, Role: domain.RoleSite, Site: site}, true
}
