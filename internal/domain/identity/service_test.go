package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/caresync/caresync/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	users map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) ListByRole(_ context.Context, role string, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		if u.Role == role {
			result = append(result, u)
		}
	}
	return result, len(result), nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	tm := auth.NewTokenManager("identity-test-secret-0123456789ab", time.Hour)
	return NewService(repo, tm), repo
}

func patientUser(email string) *User {
	return &User{
		Email:   email,
		Role:    auth.RolePatient,
		Name:    "Asha Rao",
		Patient: &PatientProfile{Gender: "female", BloodGroup: "O+"},
	}
}

// -- Tests --

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()
	u := patientUser("asha@example.com")

	if err := svc.Register(context.Background(), u, "long-enough-password"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.PasswordHash == "" || u.PasswordHash == "long-enough-password" {
		t.Error("password must be stored hashed")
	}

	got, token, err := svc.Login(context.Background(), "asha@example.com", "long-enough-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("expected user %s, got %s", u.ID, got.ID)
	}
	if token == "" {
		t.Error("expected a signed token")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService()
	u := patientUser("asha@example.com")
	if err := svc.Register(context.Background(), u, "long-enough-password"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "asha@example.com", "wrong-password"); err != ErrBadPassword {
		t.Errorf("expected ErrBadPassword, got %v", err)
	}
	// Unknown email reports the same error as a wrong password.
	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever-pass"); err != ErrBadPassword {
		t.Errorf("expected ErrBadPassword for unknown email, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.Register(context.Background(), patientUser("asha@example.com"), "long-enough-password"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := svc.Register(context.Background(), patientUser("asha@example.com"), "long-enough-password")
	if err != ErrEmailTaken {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		user *User
	}{
		{"bad email", &User{Email: "not-an-email", Role: auth.RolePatient, Name: "X", Patient: &PatientProfile{}}},
		{"missing name", &User{Email: "a@b.com", Role: auth.RolePatient, Patient: &PatientProfile{}}},
		{"bad role", &User{Email: "a@b.com", Role: "alien", Name: "X", Patient: &PatientProfile{}}},
		{"no profile", &User{Email: "a@b.com", Role: auth.RolePatient, Name: "X"}},
		{"wrong profile", &User{Email: "a@b.com", Role: auth.RolePatient, Name: "X", Doctor: &DoctorProfile{Specialty: "gp"}}},
		{"two profiles", &User{Email: "a@b.com", Role: auth.RolePatient, Name: "X",
			Patient: &PatientProfile{}, Doctor: &DoctorProfile{Specialty: "gp"}}},
		{"doctor without specialty", &User{Email: "a@b.com", Role: auth.RoleDoctor, Name: "X", Doctor: &DoctorProfile{}}},
		{"pharmacy without store name", &User{Email: "a@b.com", Role: auth.RolePharmacy, Name: "X", Pharmacy: &PharmacyProfile{}}},
	}
	for _, tc := range cases {
		if err := svc.Register(ctx, tc.user, "long-enough-password"); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestUpdateProfileKeepsRoleAndEmail(t *testing.T) {
	svc, _ := newTestService()
	u := patientUser("asha@example.com")
	if err := svc.Register(context.Background(), u, "long-enough-password"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	update := &User{
		ID:      u.ID,
		Email:   "hijack@example.com",
		Role:    auth.RoleDoctor,
		Name:    "Asha R.",
		Phone:   "555-0101",
		Patient: &PatientProfile{Address: "12 Lake View"},
	}
	if err := svc.UpdateProfile(context.Background(), update); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if update.Email != "asha@example.com" {
		t.Errorf("email must not change on update, got %s", update.Email)
	}
	if update.Role != auth.RolePatient {
		t.Errorf("role must not change on update, got %s", update.Role)
	}
}

func TestDisplayName(t *testing.T) {
	pharm := &User{
		Role:     auth.RolePharmacy,
		Name:     "Ravi Kumar",
		Pharmacy: &PharmacyProfile{StoreName: "City Pharmacy"},
	}
	if got := pharm.DisplayName(); got != "City Pharmacy" {
		t.Errorf("expected store name, got %q", got)
	}

	pat := patientUser("a@b.com")
	if got := pat.DisplayName(); got != "Asha Rao" {
		t.Errorf("expected personal name, got %q", got)
	}
}

func TestListByRoleRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService()
	if _, _, err := svc.ListByRole(context.Background(), "alien", 10, 0); err == nil {
		t.Error("expected error for unknown role")
	}
}
