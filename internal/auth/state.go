package auth

import (
	"sync"
	"time"
)

// AuthenticationState is the process-wide authentication status, per
// spec.md §4.4. Grounded on
// original_source/server/src/auth/auth_state.rs's AuthenticationState enum
// and AuthStateManager, translated from tokio::sync::RwLock-guarded
// Instant-keyed fields to a Go struct with getter methods instead of
// pattern-matched enum variants.
type AuthenticationState string

const (
	StateNotAuthenticated   AuthenticationState = "NotAuthenticated"
	StateAwaitingDeviceCode AuthenticationState = "AwaitingDeviceCode"
	StateAuthenticated      AuthenticationState = "Authenticated"
	StateFailed             AuthenticationState = "Failed"
)

// DeviceCodeInfo carries the fields a caller needs to prompt a user through
// the AAD device code flow, per spec.md §3.
type DeviceCodeInfo struct {
	UserCode        string
	VerificationURI string
	DeviceCode      string
	ExpiresIn       int64
	Interval        int64
}

// AuthStateManager is the single process-wide holder of AuthenticationState
// plus two independent token caches (AAD bearer token, SAS token), per
// spec.md §4.4. All writes are linearizable under mu; reads are snapshots.
type AuthStateManager struct {
	mu    sync.RWMutex
	state AuthenticationState

	deviceCode *DeviceCodeInfo
	failReason string

	connectionString string
	aadToken         CachedToken
	aadTokenSet      bool
	sasToken         CachedToken
	sasTokenSet      bool

	now func() time.Time
}

// NewAuthStateManager creates a manager in the NotAuthenticated state.
func NewAuthStateManager() *AuthStateManager {
	return &AuthStateManager{
		state: StateNotAuthenticated,
		now:   time.Now,
	}
}

// SetDeviceCodePending transitions to AwaitingDeviceCode carrying info.
func (m *AuthStateManager) SetDeviceCodePending(info DeviceCodeInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAwaitingDeviceCode
	m.deviceCode = &info
	m.failReason = ""
}

// SetAuthenticated transitions to Authenticated, atomically updating both
// the AAD token cache (token/ttl) and, when provided, the connection
// string carrying the current SAS token. This satisfies spec.md §4.4's
// invariant that entering Authenticated updates the state variant and the
// AAD cache together.
func (m *AuthStateManager) SetAuthenticated(token string, ttl time.Duration, connString string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.state = StateAuthenticated
	m.deviceCode = nil
	m.failReason = ""
	m.aadToken = CachedToken{Value: token, ExpiresAt: now.Add(ttl)}
	m.aadTokenSet = true
	if connString != "" {
		m.connectionString = connString
	}
}

// SetSASToken records a freshly minted SAS token alongside its expiry,
// independent of the AAD token cache.
func (m *AuthStateManager) SetSASToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sasToken = CachedToken{Value: token, ExpiresAt: expiresAt}
	m.sasTokenSet = true
}

// SetFailed transitions to Failed with reason.
func (m *AuthStateManager) SetFailed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateFailed
	m.failReason = reason
	m.deviceCode = nil
}

// Logout resets to NotAuthenticated and clears every cached credential.
func (m *AuthStateManager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateNotAuthenticated
	m.deviceCode = nil
	m.failReason = ""
	m.connectionString = ""
	m.aadToken = CachedToken{}
	m.aadTokenSet = false
	m.sasToken = CachedToken{}
	m.sasTokenSet = false
}

// IsAuthenticated reports whether the current state is Authenticated.
func (m *AuthStateManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateAuthenticated
}

// NeedsReauthentication reports true when the state is not Authenticated,
// or is Authenticated but its token is within DefaultRefreshWindow of
// expiring, per auth_state.rs:87-96's "now + 300s >= expires_at" check
// (not a full-expiry check — this signals proactive re-auth before the
// token actually lapses).
func (m *AuthStateManager) NeedsReauthentication() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated {
		return true
	}
	return !m.aadTokenSet || m.aadToken.NeedsRefresh(m.now(), DefaultRefreshWindow)
}

// GetAzureADToken returns the cached AAD bearer token iff set and
// unexpired.
func (m *AuthStateManager) GetAzureADToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.aadTokenSet || m.aadToken.IsExpired(m.now()) {
		return "", false
	}
	return m.aadToken.Value, true
}

// GetSASToken returns the cached SAS token iff set and unexpired.
func (m *AuthStateManager) GetSASToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.sasTokenSet || m.sasToken.IsExpired(m.now()) {
		return "", false
	}
	return m.sasToken.Value, true
}

// GetConnectionString returns the current connection string iff the state
// is Authenticated.
func (m *AuthStateManager) GetConnectionString() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated || m.connectionString == "" {
		return "", false
	}
	return m.connectionString, true
}

// GetDeviceCodeInfo returns the pending device code info iff the state is
// AwaitingDeviceCode.
func (m *AuthStateManager) GetDeviceCodeInfo() (DeviceCodeInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAwaitingDeviceCode || m.deviceCode == nil {
		return DeviceCodeInfo{}, false
	}
	return *m.deviceCode, true
}

// State returns the current AuthenticationState snapshot.
func (m *AuthStateManager) State() AuthenticationState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// FailReason returns the reason recorded by the most recent SetFailed, or
// "" if the state is not Failed.
func (m *AuthStateManager) FailReason() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateFailed {
		return ""
	}
	return m.failReason
}
