// Package session owns the process-wide authenticated session. It is created
// once from a service credential and handed to every component that needs it.
package session

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
	"github.com/irbid-geoai/geoai-monitor/internal/logger"
)

// EarthEngineScope is the only scope a session can be opened with.
const EarthEngineScope = "https://www.googleapis.com/auth/earthengine"

// ErrAlreadyInitialized is returned when a valid session already exists.
var ErrAlreadyInitialized = errors.New("session already initialized")

// Credential is a service-account key document.
type Credential struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ParseCredential validates a service-account payload, including its key.
func ParseCredential(payload []byte) (Credential, error) {
	var c Credential
	if len(strings.TrimSpace(string(payload))) == 0 {
		return c, apperrors.NewAuthError("no service credential supplied", nil)
	}
	if err := json.Unmarshal(payload, &c); err != nil {
		return c, apperrors.NewAuthError("service credential is not valid JSON", err)
	}
	if c.Type != "service_account" {
		return c, apperrors.NewAuthError(fmt.Sprintf("credential type %q is not service_account", c.Type), nil)
	}
	var missing []string
	for field, v := range map[string]string{"project_id": c.ProjectID, "client_email": c.ClientEmail, "private_key": c.PrivateKey} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return c, apperrors.NewAuthError(fmt.Sprintf("credential is missing %s", strings.Join(missing, ", ")), nil)
	}
	if !strings.Contains(c.ClientEmail, "@") {
		return c, apperrors.NewAuthError(fmt.Sprintf("client_email %q is not an address", c.ClientEmail), nil)
	}

	block, _ := pem.Decode([]byte(c.PrivateKey))
	if block == nil {
		return c, apperrors.NewAuthError("private_key is not PEM encoded", nil)
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err != nil {
		if _, err1 := x509.ParsePKCS1PrivateKey(block.Bytes); err1 != nil {
			return c, apperrors.NewAuthError("private_key cannot be parsed", err)
		}
	}
	return c, nil
}

// Session is an authenticated handle. It is immutable.
type Session struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	ClientEmail string    `json:"client_email"`
	Scope       string    `json:"scope"`
	Created     time.Time `json:"created"`
}

// Manager guards the single session of the process.
type Manager struct {
	mu      sync.RWMutex
	current *Session
	lastErr error
	group   singleflight.Group
}

func NewManager() *Manager {
	return &Manager{}
}

// Initialize opens the session. Concurrent callers share one attempt. Once a
// session is valid, further calls fail with ErrAlreadyInitialized; after a
// failure or Invalidate a new credential may be supplied.
func (m *Manager) Initialize(ctx context.Context, payload []byte, scope string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	exists := m.current != nil
	m.mu.RUnlock()
	if exists {
		return nil, ErrAlreadyInitialized
	}

	v, err, shared := m.group.Do("initialize", func() (interface{}, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.current != nil {
			return nil, ErrAlreadyInitialized
		}

		s, err := open(payload, scope)
		if err != nil {
			m.lastErr = err
			logger.WithError(err).Warn("Session initialization failed")
			return nil, err
		}
		m.current = s
		m.lastErr = nil
		logger.WithFields(logrus.Fields{
			"session_id": s.ID,
			"project":    s.ProjectID,
			"account":    s.ClientEmail,
		}).Info("Session initialized")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("Session initialization shared with a concurrent caller")
	}
	return v.(*Session), nil
}

func open(payload []byte, scope string) (*Session, error) {
	if scope != EarthEngineScope {
		return nil, apperrors.NewAuthError(fmt.Sprintf("scope %q is not %s", scope, EarthEngineScope), nil)
	}
	cred, err := ParseCredential(payload)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:          uuid.NewString(),
		ProjectID:   cred.ProjectID,
		ClientEmail: cred.ClientEmail,
		Scope:       scope,
		Created:     time.Now().UTC(),
	}, nil
}

// Current returns the session, or an AuthError when there is none.
func (m *Manager) Current() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		if m.lastErr != nil {
			return nil, apperrors.NewAuthError("no valid session; supply a new credential", m.lastErr)
		}
		return nil, apperrors.NewAuthError("session has not been initialized", nil)
	}
	return m.current, nil
}

// Authorize reports whether work may run under the session.
func (m *Manager) Authorize() error {
	_, err := m.Current()
	return err
}

// Invalidate drops the session after a session-fatal failure. Every module is
// blocked until Initialize succeeds again.
func (m *Manager) Invalidate(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		logger.WithError(cause).WithField("session_id", m.current.ID).Warn("Session invalidated")
	}
	m.current = nil
	m.lastErr = cause
}
