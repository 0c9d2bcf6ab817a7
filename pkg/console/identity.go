package console

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Session is an identity-provider session. A session alone does not
// grant console access: full authentication is the conjunction of a
// live session and a second factor verified inside the trust window.
type Session struct {
	Identity string
	IssuedAt time.Time
}

// IdentityProvider is the external authentication service boundary.
// One provider instance is scoped to a single console session (device);
// its internal code delivery mechanism is not modeled here.
type IdentityProvider interface {
	// VerifyPassword checks the credential pair. On success the
	// provider may establish a session before any code is verified.
	VerifyPassword(ctx context.Context, email, password string) error

	// IssueCode requests a one-time code be sent to the address.
	IssueCode(ctx context.Context, email string) error

	// VerifyCode exchanges a one-time code for elevated trust.
	VerifyCode(ctx context.Context, email, code string) error

	// CurrentSession returns the existing session, or nil when absent.
	CurrentSession(ctx context.Context) (*Session, error)

	// SignOut invalidates the session with the provider.
	SignOut(ctx context.Context) error
}

// CodeSender delivers a one-time code out of band.
type CodeSender interface {
	SendCode(email, code string) error
}

// LogCodeSender writes codes to the log instead of delivering them.
// Suitable for development and tests only.
type LogCodeSender struct {
	Log logrus.FieldLogger
}

// SendCode logs the code at info level.
func (s *LogCodeSender) SendCode(email, code string) error {
	s.Log.WithField("email", email).
		WithField("code", code).
		Info("One-time code issued")

	return nil
}

const (
	codeDigits = 6
	codeMax    = 1000000
)

// DirectoryUser seeds the built-in directory with one operator.
type DirectoryUser struct {
	Email    string
	Password string
}

type directoryEntry struct {
	passwordHash []byte
}

type issuedCode struct {
	code     string
	issuedAt time.Time
}

// Directory is the built-in identity provider backend: a fixed set of
// operators with bcrypt password hashes and short-lived one-time codes.
// Each console session gets its own provider handle via NewSession.
type Directory struct {
	log     logrus.FieldLogger
	sender  CodeSender
	codeTTL time.Duration
	now     func() time.Time

	mu    sync.Mutex
	users map[string]directoryEntry
	codes map[string]issuedCode
}

// NewDirectory builds a directory from seeded users. Plaintext seed
// passwords are hashed immediately and never retained.
func NewDirectory(
	log logrus.FieldLogger,
	users []DirectoryUser,
	sender CodeSender,
	codeTTL time.Duration,
) (*Directory, error) {
	d := &Directory{
		log:     log.WithField("component", "identity-directory"),
		sender:  sender,
		codeTTL: codeTTL,
		now:     time.Now,
		users:   make(map[string]directoryEntry, len(users)),
		codes:   make(map[string]issuedCode),
	}

	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword(
			[]byte(u.Password), bcrypt.DefaultCost,
		)
		if err != nil {
			return nil, fmt.Errorf("hashing password for %q: %w", u.Email, err)
		}

		d.users[NormalizeEmail(u.Email)] = directoryEntry{passwordHash: hash}
	}

	return d, nil
}

// NewSession returns a provider handle scoped to one console session.
func (d *Directory) NewSession() IdentityProvider {
	return &directorySession{dir: d}
}

func (d *Directory) verifyPassword(email, password string) error {
	d.mu.Lock()
	entry, ok := d.users[NormalizeEmail(email)]
	d.mu.Unlock()

	if !ok {
		// Burn a comparison so unknown addresses cost the same.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(password),
		)

		return ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword(entry.passwordHash, []byte(password)) != nil {
		return ErrInvalidCredentials
	}

	return nil
}

func (d *Directory) issueCode(email string) error {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax))
	if err != nil {
		return fmt.Errorf("generating one-time code: %w", err)
	}

	code := fmt.Sprintf("%0*d", codeDigits, n.Int64())
	norm := NormalizeEmail(email)

	d.mu.Lock()
	d.codes[norm] = issuedCode{code: code, issuedAt: d.now()}
	d.mu.Unlock()

	if err := d.sender.SendCode(norm, code); err != nil {
		return fmt.Errorf("delivering one-time code: %w", err)
	}

	return nil
}

func (d *Directory) verifyCode(email, code string) error {
	norm := NormalizeEmail(email)

	d.mu.Lock()
	issued, ok := d.codes[norm]
	d.mu.Unlock()

	if !ok {
		return ErrInvalidCode
	}

	if d.now().Sub(issued.issuedAt) > d.codeTTL {
		return ErrInvalidCode
	}

	if subtle.ConstantTimeCompare([]byte(issued.code), []byte(code)) != 1 {
		return ErrInvalidCode
	}

	// Codes are single-use.
	d.mu.Lock()
	delete(d.codes, norm)
	d.mu.Unlock()

	return nil
}

// directorySession is one console session's handle onto the directory.
type directorySession struct {
	dir *Directory

	mu      sync.Mutex
	session *Session
}

// Compile-time interface check.
var _ IdentityProvider = (*directorySession)(nil)

func (s *directorySession) VerifyPassword(
	_ context.Context, email, password string,
) error {
	if err := s.dir.verifyPassword(email, password); err != nil {
		return err
	}

	// A provider session exists from this point, before the second
	// factor is verified.
	s.mu.Lock()
	s.session = &Session{
		Identity: NormalizeEmail(email),
		IssuedAt: s.dir.now(),
	}
	s.mu.Unlock()

	return nil
}

func (s *directorySession) IssueCode(_ context.Context, email string) error {
	return s.dir.issueCode(email)
}

func (s *directorySession) VerifyCode(
	_ context.Context, email, code string,
) error {
	return s.dir.verifyCode(email, code)
}

func (s *directorySession) CurrentSession(
	_ context.Context,
) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session, nil
}

func (s *directorySession) SignOut(_ context.Context) error {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()

	return nil
}
