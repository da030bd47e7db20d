package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nebulaclass/authcore/password"
	"github.com/nebulaclass/authcore/sso"
)

type fakeProvider struct {
	mu         sync.Mutex
	byEmail    map[string]Identity
	byID       map[int64]Identity
	perms      map[int64][]string
	lastLogin  map[int64]time.Time
	nextSSOID  int64
	failLogin  bool
	permsError error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		byEmail:   map[string]Identity{},
		byID:      map[int64]Identity{},
		perms:     map[int64][]string{},
		lastLogin: map[int64]time.Time{},
		nextSSOID: 1000,
	}
}

func (p *fakeProvider) add(identity Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byEmail[identity.Email] = identity
	p.byID[identity.ID] = identity
}

func (p *fakeProvider) GetByIdentifier(_ context.Context, identifier string) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	identity, ok := p.byEmail[identifier]
	if !ok {
		return Identity{}, errors.New("identity not found")
	}
	return identity, nil
}

func (p *fakeProvider) GetByID(_ context.Context, id int64) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	identity, ok := p.byID[id]
	if !ok {
		return Identity{}, errors.New("identity not found")
	}
	return identity, nil
}

func (p *fakeProvider) GetPermissions(_ context.Context, id int64) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.permsError != nil {
		return nil, p.permsError
	}
	return p.perms[id], nil
}

func (p *fakeProvider) GetPresentation(_ context.Context, id int64) (map[string]string, error) {
	return map[string]string{"theme": "default"}, nil
}

func (p *fakeProvider) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failLogin {
		return errors.New("user store write failed")
	}
	p.lastLogin[id] = at
	return nil
}

func (p *fakeProvider) GetOrCreateSSOIdentity(_ context.Context, sourceID, name string, _ sso.Config) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, identity := range p.byID {
		if identity.Email == sourceID+"@sso.local" {
			return identity, nil
		}
	}
	p.nextSSOID++
	identity := Identity{
		ID:     p.nextSSOID,
		Email:  sourceID + "@sso.local",
		Name:   name,
		Role:   RoleUser,
		Status: IdentityActive,
		Origin: OriginSSO,
	}
	p.byEmail[identity.Email] = identity
	p.byID[identity.ID] = identity
	return identity, nil
}

func (p *fakeProvider) lastLoginAt(id int64) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	at, ok := p.lastLogin[id]
	return at, ok
}

type sentCode struct {
	email string
	code  string
}

type fakeMailer struct {
	mu   sync.Mutex
	fail bool
	sent []sentCode
}

func (m *fakeMailer) SendLoginCode(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, sentCode{email: email, code: code})
	return nil
}

func (m *fakeMailer) lastCode() (sentCode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentCode{}, false
	}
	return m.sent[len(m.sent)-1], true
}

func (m *fakeMailer) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

type fakeSettings struct {
	refreshTTL time.Duration
	refreshErr error
	ssoCfg     sso.Config
	ssoErr     error
}

func (s *fakeSettings) RefreshTokenTTL(context.Context) (time.Duration, error) {
	return s.refreshTTL, s.refreshErr
}

func (s *fakeSettings) SSOConfig(context.Context) (sso.Config, error) {
	return s.ssoCfg, s.ssoErr
}

type testFixture struct {
	engine   *Engine
	provider *fakeProvider
	mailer   *fakeMailer
	settings *fakeSettings
	redis    *miniredis.Miniredis
	client   *redis.Client
}

func testEngineConfig() Config {
	cfg := defaultConfig()
	cfg.Token.AccessSecret = []byte("access-secret-for-tests-only")
	cfg.Token.RefreshSecret = []byte("refresh-secret-for-tests-only")
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) *testFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testEngineConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	provider := newFakeProvider()
	mailer := &fakeMailer{}
	settings := &fakeSettings{
		refreshTTL: 30 * 24 * time.Hour,
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityProvider(provider).
		WithMailer(mailer).
		WithSettings(settings).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testFixture{
		engine:   engine,
		provider: provider,
		mailer:   mailer,
		settings: settings,
		redis:    mr,
		client:   rdb,
	}
}

// addPasswordUser registers an active password-origin identity and returns it.
func (f *testFixture) addPasswordUser(t *testing.T, id int64, email, secret string) Identity {
	t.Helper()

	hash, err := f.engine.hasher.Hash(secret)
	if err != nil {
		t.Fatalf("test hash failed: %v", err)
	}

	identity := Identity{
		ID:           id,
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Role:         RoleUser,
		Status:       IdentityActive,
		Origin:       OriginPassword,
	}
	f.provider.add(identity)
	f.provider.perms[id] = []string{"chat.use", "wiki.read"}
	return identity
}

// killRedis shuts down the backing store to simulate an outage.
func (f *testFixture) killRedis() {
	f.redis.Close()
}
