package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/profiledoc/profiledoc/internal/common"
	"github.com/profiledoc/profiledoc/internal/dbx"
	"github.com/profiledoc/profiledoc/internal/server/auth"
	"github.com/profiledoc/profiledoc/internal/server/config"
	"github.com/profiledoc/profiledoc/internal/server/models"
	refreshtokensrepo "github.com/profiledoc/profiledoc/internal/server/repositories/refreshtokens"
	usersrepo "github.com/profiledoc/profiledoc/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		AccessSecretKey:              "access-secret",
		RefreshSecretKey:             "refresh-secret",
		JWTSigningAlgorithm:          "HS256",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
}

func newUserService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *UserService {
	t.Helper()
	return NewUserService(db, rm, testConfig())
}

// testTokenManager mints tokens verifiable by services built with testConfig.
func testTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("access-secret", "refresh-secret", "HS256")
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	byEmail      map[string]*models.User
	byEmailErr   error
	lastGetEmail string

	byID    map[string]*models.User
	byIDErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	u.ID = "u-new"
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.lastGetEmail = email
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

type fakeRefreshRepo struct {
	created []string

	findOut *models.RefreshToken
	findErr error

	deleted []string
	delErr  error

	createErr error

	purged int64
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return f.purged, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }

func registeredUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	u, err := models.NewUser(email, "Alice", "Tester", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), password)
	if err != nil {
		t.Fatalf("NewUser error: %v", err)
	}
	u.ID = "u-1"
	return u
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	u, err := s.Register(context.Background(), RegisterInput{
		Email:       "Alice@Example.COM",
		Name:        "Alice",
		Surname:     "Tester",
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Password:    "Password123!",
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.PasswordHash == "" || u.PasswordHash == "Password123!" {
		t.Fatalf("hash not derived: %q", u.PasswordHash)
	}
	if rm.u.lastGetEmail != "alice@example.com" {
		t.Fatalf("existence check used non-normalized email: %q", rm.u.lastGetEmail)
	}
}

func TestRegister_DuplicateEmail_CaseInsensitive(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	existing := registeredUser(t, "alice@example.com", "pw")
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byEmail: map[string]*models.User{"alice@example.com": existing}},
		r: &fakeRefreshRepo{},
	}
	s := newUserService(t, db, rm)

	_, err := s.Register(context.Background(), RegisterInput{Email: "ALICE@EXAMPLE.com", Password: "pw"})
	if !errors.Is(err, common.ErrUserAlreadyExists) {
		t.Fatalf("want ErrUserAlreadyExists, got %v", err)
	}
}

func TestRegister_RaceOnUniqueIndex(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{createErr: common.ErrUserAlreadyExists},
		r: &fakeRefreshRepo{},
	}
	s := newUserService(t, db, rm)

	_, err := s.Register(context.Background(), RegisterInput{Email: "x@example.com", Password: "pw"})
	if !errors.Is(err, common.ErrUserCreateFailed) {
		t.Fatalf("want ErrUserCreateFailed, got %v", err)
	}
}

func TestRegister_HashFailureKeepsCause(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	// bcrypt rejects passwords longer than 72 bytes
	_, err := s.Register(context.Background(), RegisterInput{
		Email:    "x@example.com",
		Password: strings.Repeat("p", 80),
	})
	if !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
	if err.Error() == common.ErrorInternal.Error() {
		t.Fatalf("underlying cause must be preserved, got bare %q", err)
	}
}

func TestRegister_PersistenceError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: errBoom{}}, r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	_, err := s.Register(context.Background(), RegisterInput{Email: "x@example.com", Password: "pw"})
	if !errors.Is(err, common.ErrorPersistence) {
		t.Fatalf("want ErrorPersistence, got %v", err)
	}
}

// --- Login ---

func TestLogin_UnknownEmailAndWrongPassword_Indistinguishable(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	existing := registeredUser(t, "alice@example.com", "right password")
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byEmail: map[string]*models.User{"alice@example.com": existing}},
		r: &fakeRefreshRepo{},
	}
	s := newUserService(t, db, rm)

	_, errUnknown := s.Login(context.Background(), "nobody@example.com", "whatever")
	_, errWrongPw := s.Login(context.Background(), "alice@example.com", "wrong password")

	if !errors.Is(errUnknown, common.ErrInvalidCredentials) {
		t.Fatalf("unknown email: want ErrInvalidCredentials, got %v", errUnknown)
	}
	if !errors.Is(errWrongPw, common.ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", errWrongPw)
	}
	if !errors.Is(errUnknown, errWrongPw) && errUnknown.Error() != errWrongPw.Error() {
		t.Fatalf("outcomes differ: %v vs %v", errUnknown, errWrongPw)
	}
}

func TestLogin_Success_PersistsRefreshToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	existing := registeredUser(t, "alice@example.com", "Password123!")
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byEmail: map[string]*models.User{"alice@example.com": existing}},
		r: &fakeRefreshRepo{},
	}
	s := newUserService(t, db, rm)

	pair, err := s.Login(context.Background(), "Alice@example.com", "Password123!")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
	if len(rm.r.created) != 1 || rm.r.created[0] != pair.RefreshToken {
		t.Fatalf("refresh token not persisted: %v", rm.r.created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLogin_RefreshPersistFails_NoTokensReturned(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	existing := registeredUser(t, "alice@example.com", "Password123!")
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byEmail: map[string]*models.User{"alice@example.com": existing}},
		r: &fakeRefreshRepo{createErr: errBoom{}},
	}
	s := newUserService(t, db, rm)

	pair, err := s.Login(context.Background(), "alice@example.com", "Password123!")
	if err == nil {
		t.Fatalf("expected error when refresh row cannot be stored")
	}
	if pair != nil {
		t.Fatalf("tokens must not be returned on persistence failure: %+v", pair)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// --- Authenticate ---

func TestAuthenticate_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	existing := registeredUser(t, "alice@example.com", "pw")
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byID: map[string]*models.User{"u-1": existing}},
		r: &fakeRefreshRepo{},
	}
	s := newUserService(t, db, rm)

	tok, err := testTokenManager().CreateAccessToken("u-1", "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("CreateAccessToken error: %v", err)
	}

	user, err := s.Authenticate(context.Background(), tok)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if user.ID != "u-1" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	tok, err := testTokenManager().CreateAccessToken("u-1", "a@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("CreateAccessToken error: %v", err)
	}

	_, err = s.Authenticate(context.Background(), tok)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	_, err := s.Authenticate(context.Background(), "garbage")
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	tok, err := testTokenManager().CreateAccessToken("gone", "gone@example.com", time.Hour)
	if err != nil {
		t.Fatalf("CreateAccessToken error: %v", err)
	}

	_, err = s.Authenticate(context.Background(), tok)
	if !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

// --- Logout / Refresh ---

func TestLogout_Idempotent(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}}
	s := newUserService(t, db, rm)

	if err := s.Logout(context.Background(), "tok"); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if err := s.Logout(context.Background(), "tok"); err != nil {
		t.Fatalf("repeated Logout error: %v", err)
	}
	if len(rm.r.deleted) != 2 {
		t.Fatalf("expected 2 delete calls, got %d", len(rm.r.deleted))
	}
}

func TestRefresh_AfterLogout_FailsDespiteValidSignature(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	// signature is fine, but no persisted row exists
	tok, err := testTokenManager().CreateRefreshToken("u-1", "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("CreateRefreshToken error: %v", err)
	}

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{findErr: common.ErrorNotFound}}
	s := newUserService(t, db, rm)

	_, err = s.Refresh(context.Background(), tok)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestRefresh_ExpiredRow(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{},
		r: &fakeRefreshRepo{findOut: &models.RefreshToken{UserID: "u-1", Expires: time.Now().Add(-time.Minute)}},
	}
	s := newUserService(t, db, rm)

	_, err := s.Refresh(context.Background(), "whatever")
	if !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("want ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefresh_BadSignatureRejectedEvenWithRow(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	forged, err := auth.NewTokenManager("a", "other-refresh-secret", "HS256").
		CreateRefreshToken("u-1", "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("CreateRefreshToken error: %v", err)
	}

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{},
		r: &fakeRefreshRepo{findOut: &models.RefreshToken{UserID: "u-1", Expires: time.Now().Add(time.Hour)}},
	}
	s := newUserService(t, db, rm)

	_, err = s.Refresh(context.Background(), forged)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestRefresh_Success_RotatesToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	old, err := testTokenManager().CreateRefreshToken("u-1", "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("CreateRefreshToken error: %v", err)
	}

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{},
		r: &fakeRefreshRepo{findOut: &models.RefreshToken{UserID: "u-1", Token: old, Expires: time.Now().Add(time.Hour)}},
	}
	s := newUserService(t, db, rm)

	pair, err := s.Refresh(context.Background(), old)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
	if len(rm.r.deleted) != 1 || rm.r.deleted[0] != old {
		t.Fatalf("old refresh token not deleted: %v", rm.r.deleted)
	}
	if len(rm.r.created) != 1 || rm.r.created[0] == old {
		t.Fatalf("new refresh token not persisted or not rotated: %v", rm.r.created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRefresh_DeleteErr_RollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	old, err := testTokenManager().CreateRefreshToken("u-1", "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("CreateRefreshToken error: %v", err)
	}

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{},
		r: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: "u-1", Expires: time.Now().Add(time.Hour)},
			delErr:  errBoom{},
		},
	}
	s := newUserService(t, db, rm)

	if _, err := s.Refresh(context.Background(), old); err == nil {
		t.Fatalf("expected error when rotation delete fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestPurgeExpiredRefreshTokens(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{purged: 4}}
	s := newUserService(t, db, rm)

	n, err := s.PurgeExpiredRefreshTokens(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpiredRefreshTokens error: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4, got %d", n)
	}
}
