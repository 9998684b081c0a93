package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"internhub/internal/api/api"
	"internhub/internal/auth"
	"internhub/internal/dto"
	"internhub/internal/model"
	"internhub/internal/payment"
	"internhub/internal/repo"
	"internhub/internal/service"
)

const (
	regID   = "3d6f0e9a-1111-4222-8333-444455556666"
	adminID = "7a8b9c0d-1111-4222-8333-444455557777"
)

type fakeRepo struct {
	repo.Repository

	registrations map[string]*model.Registration
	admins        map[string]*model.AdminUser
	sessions      map[string]*model.AdminSession
	logs          []model.SystemLog
	transactions  []model.PaymentTransaction

	stats       repo.DashboardStats
	fieldCounts []repo.FieldCount
	modeCounts  []repo.ModeCount

	failMarkPaid bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		registrations: make(map[string]*model.Registration),
		admins:        make(map[string]*model.AdminUser),
		sessions:      make(map[string]*model.AdminSession),
	}
}

func (f *fakeRepo) CreateRegistration(_ context.Context, reg *model.Registration) error {
	for _, existing := range f.registrations {
		if existing.Email == reg.Email {
			return repo.ErrDuplicateEmail
		}
	}
	reg.CreatedAt = time.Now().UTC()
	reg.UpdatedAt = reg.CreatedAt
	f.registrations[reg.ID] = reg
	return nil
}

func (f *fakeRepo) GetRegistrationByID(_ context.Context, id string) (*model.Registration, error) {
	if reg, ok := f.registrations[id]; ok {
		copied := *reg
		return &copied, nil
	}
	return nil, repo.ErrRegistrationNotFound
}

func (f *fakeRepo) SetPaymentReference(_ context.Context, id, reference string, amount int64) error {
	reg, ok := f.registrations[id]
	if !ok {
		return repo.ErrRegistrationNotFound
	}
	reg.PaymentReference = reference
	reg.PaymentAmount = amount
	return nil
}

func (f *fakeRepo) MarkRegistrationPaidTx(_ context.Context, txn *model.PaymentTransaction, transactionID, verificationCode string) (*model.Registration, error) {
	if f.failMarkPaid {
		return nil, errors.New("storage down")
	}
	reg, ok := f.registrations[txn.RegistrationID]
	if !ok {
		return nil, repo.ErrRegistrationNotFound
	}
	reg.PaymentStatus = model.PaymentStatusPaid
	reg.VerificationCode = verificationCode
	reg.TransactionID = transactionID
	reg.PaymentMethod = txn.PaymentMethod
	f.transactions = append(f.transactions, *txn)
	copied := *reg
	return &copied, nil
}

func (f *fakeRepo) ListRegistrations(_ context.Context, _ repo.RegistrationFilter) ([]model.Registration, int64, error) {
	var out []model.Registration
	for _, reg := range f.registrations {
		out = append(out, *reg)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) UpdateRegistrationReview(_ context.Context, id string, upd repo.ReviewUpdate) (*model.Registration, error) {
	reg, ok := f.registrations[id]
	if !ok {
		return nil, repo.ErrRegistrationNotFound
	}
	if upd.PaymentStatus != "" {
		reg.PaymentStatus = upd.PaymentStatus
	}
	if upd.RegistrationStatus != "" {
		reg.RegistrationStatus = upd.RegistrationStatus
	}
	if upd.Notes != "" {
		reg.Notes = upd.Notes
	}
	reg.AdminReviewedBy = upd.ReviewedBy
	copied := *reg
	return &copied, nil
}

func (f *fakeRepo) DashboardStats(_ context.Context) (*repo.DashboardStats, error) {
	stats := f.stats
	return &stats, nil
}

func (f *fakeRepo) FieldCounts(_ context.Context) ([]repo.FieldCount, error) { return f.fieldCounts, nil }
func (f *fakeRepo) ModeCounts(_ context.Context) ([]repo.ModeCount, error)   { return f.modeCounts, nil }

func (f *fakeRepo) RecentRegistrations(_ context.Context, _ int) ([]model.Registration, error) {
	return nil, nil
}

func (f *fakeRepo) GetAdminByEmail(_ context.Context, email string) (*model.AdminUser, error) {
	for _, a := range f.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, repo.ErrAdminNotFound
}

func (f *fakeRepo) GetAdminByID(_ context.Context, id string) (*model.AdminUser, error) {
	if a, ok := f.admins[id]; ok {
		return a, nil
	}
	return nil, repo.ErrAdminNotFound
}

func (f *fakeRepo) TouchAdminLastLogin(_ context.Context, id string, at time.Time) error {
	if a, ok := f.admins[id]; ok {
		a.LastLogin = &at
	}
	return nil
}

func (f *fakeRepo) CreateSession(_ context.Context, s *model.AdminSession) error {
	f.sessions[s.SessionToken] = s
	return nil
}

func (f *fakeRepo) GetActiveSessionByToken(_ context.Context, token string) (*model.AdminSession, error) {
	if s, ok := f.sessions[token]; ok && s.IsActive {
		return s, nil
	}
	return nil, repo.ErrSessionNotFound
}

func (f *fakeRepo) DeactivateSession(_ context.Context, id string) error {
	for _, s := range f.sessions {
		if s.ID == id {
			s.IsActive = false
			return nil
		}
	}
	return nil
}

func (f *fakeRepo) AppendSystemLog(_ context.Context, entry *model.SystemLog) error {
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeRepo) ListSystemLogs(_ context.Context, _, _ int) ([]model.SystemLog, int64, error) {
	return f.logs, int64(len(f.logs)), nil
}

type fakeProvider struct {
	chargeLink   string
	chargeErr    error
	verifyResult *payment.VerificationResult
	verifyErr    error
	lastCharge   payment.ChargeInput
}

func (p *fakeProvider) CreateCharge(_ context.Context, in payment.ChargeInput) (string, error) {
	p.lastCharge = in
	if p.chargeErr != nil {
		return "", p.chargeErr
	}
	return p.chargeLink, nil
}

func (p *fakeProvider) VerifyTransaction(_ context.Context, _ string) (*payment.VerificationResult, error) {
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return p.verifyResult, nil
}

func (p *fakeProvider) Currency() string { return "RWF" }

type fakeContact struct {
	err   error
	calls int
}

func (c *fakeContact) SendContactEmail(_, _, _ string) error {
	c.calls++
	return c.err
}

type fakeQueue struct {
	err      error
	payloads [][]byte
}

func (q *fakeQueue) Publish(message []byte) error {
	if q.err != nil {
		return q.err
	}
	q.payloads = append(q.payloads, message)
	return nil
}

type testEnv struct {
	repo     *fakeRepo
	provider *fakeProvider
	contact  *fakeContact
	queue    *fakeQueue
	guard    *auth.Guard
	app      *ginext.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()

	r := newFakeRepo()
	guard, err := auth.NewGuard(r, &log, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	provider := &fakeProvider{chargeLink: "https://pay.example/link"}
	contact := &fakeContact{}
	queue := &fakeQueue{}

	svc := service.NewService(r, &log, guard, provider, contact, queue, "INTERN")
	app := api.NewRouters(&api.Routers{Service: svc, Guard: guard})

	return &testEnv{repo: r, provider: provider, contact: contact, queue: queue, guard: guard, app: app}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.app.ServeHTTP(w, req)

	var resp dto.Response
	if strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func (e *testEnv) seedRegistration() *model.Registration {
	reg := &model.Registration{
		ID:                 regID,
		FullName:           "Jane Doe",
		Email:              "jane@example.com",
		Phone:              "+250788000000",
		Address:            "KG 1 Ave, Kigali",
		NationalID:         "1199880012345678",
		Field:              "Software",
		Mode:               "Online",
		PaymentStatus:      model.PaymentStatusUnpaid,
		RegistrationStatus: model.RegistrationStatusRegistered,
	}
	e.repo.registrations[reg.ID] = reg
	return reg
}

func (e *testEnv) seedAdmin(t *testing.T) *model.AdminUser {
	t.Helper()
	hash, err := auth.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	admin := &model.AdminUser{
		ID:           adminID,
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: hash,
		FullName:     "Admin User",
		Role:         "super_admin",
		IsActive:     true,
	}
	e.repo.admins[admin.ID] = admin
	return admin
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	admin := e.seedAdmin(t)
	token, _, err := e.guard.IssueSession(context.Background(), admin, "", "")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	return token
}

func registerBody() map[string]any {
	return map[string]any{
		"full_name":   "Jane Doe",
		"email":       "jane@example.com",
		"phone":       "+250788000000",
		"address":     "KG 1 Ave, Kigali",
		"national_id": "1199880012345678",
		"field":       "Software",
		"mode":        "Online",
	}
}

func TestRegisterInternship(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodPost, "/api/register-internship", registerBody(), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !resp.Success {
		t.Fatal("expected success envelope")
	}
	if len(env.repo.registrations) != 1 {
		t.Fatalf("expected 1 registration, got %d", len(env.repo.registrations))
	}
	for _, reg := range env.repo.registrations {
		if reg.PaymentStatus != model.PaymentStatusUnpaid {
			t.Errorf("expected unpaid, got %q", reg.PaymentStatus)
		}
		if reg.RegistrationStatus != model.RegistrationStatusRegistered {
			t.Errorf("expected registered, got %q", reg.RegistrationStatus)
		}
	}
}

func TestRegisterInternshipDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegistration()

	w, resp := env.do(t, http.MethodPost, "/api/register-internship", registerBody(), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp.Message != dto.MsgDuplicateEmail {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestRegisterInternshipRejectsUnknownField(t *testing.T) {
	env := newTestEnv(t)
	body := registerBody()
	body["field"] = "Astrology"

	w, resp := env.do(t, http.MethodPost, "/api/register-internship", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp.Message != dto.MsgValidationError {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if len(env.repo.registrations) != 0 {
		t.Fatal("registration must not be persisted on validation failure")
	}
}

func TestCreatePayment(t *testing.T) {
	env := newTestEnv(t)
	reg := env.seedRegistration()

	w, resp := env.do(t, http.MethodPost, "/api/create-payment", map[string]any{
		"registration_id": reg.ID,
		"email":           reg.Email,
		"amount":          50000,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	data, _ := json.Marshal(resp.Data)
	var out dto.CreatePaymentResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if out.PaymentLink != "https://pay.example/link" {
		t.Errorf("unexpected payment link: %q", out.PaymentLink)
	}
	if !strings.HasPrefix(out.TransactionRef, "INTERN-"+reg.ID+"-") {
		t.Errorf("unexpected transaction ref: %q", out.TransactionRef)
	}
	if env.repo.registrations[reg.ID].PaymentReference != out.TransactionRef {
		t.Error("payment reference not stored")
	}
	if env.provider.lastCharge.Amount != 50000 || env.provider.lastCharge.Currency != "RWF" {
		t.Errorf("unexpected charge input: %+v", env.provider.lastCharge)
	}
}

func TestCreatePaymentUnknownRegistration(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodPost, "/api/create-payment", map[string]any{
		"registration_id": regID,
		"email":           "jane@example.com",
		"amount":          50000,
	}, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCreatePaymentAlreadyPaid(t *testing.T) {
	env := newTestEnv(t)
	reg := env.seedRegistration()
	reg.PaymentStatus = model.PaymentStatusPaid

	w, resp := env.do(t, http.MethodPost, "/api/create-payment", map[string]any{
		"registration_id": reg.ID,
		"email":           reg.Email,
		"amount":          50000,
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp.Message != dto.MsgAlreadyPaid {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestCreatePaymentProviderRejection(t *testing.T) {
	env := newTestEnv(t)
	reg := env.seedRegistration()
	env.provider.chargeErr = payment.ErrProviderRejected

	w, _ := env.do(t, http.MethodPost, "/api/create-payment", map[string]any{
		"registration_id": reg.ID,
		"email":           reg.Email,
		"amount":          50000,
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func verifyBody() map[string]any {
	return map[string]any{
		"transaction_id":  "8841566",
		"registration_id": regID,
	}
}

var verificationCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func TestVerifyPaymentSuccess(t *testing.T) {
	env := newTestEnv(t)
	reg := env.seedRegistration()
	env.provider.verifyResult = &payment.VerificationResult{
		Status:      payment.StatusSuccessful,
		Currency:    "RWF",
		Amount:      50000,
		TxRef:       "INTERN-" + reg.ID + "-1",
		PaymentType: "card",
		Raw:         []byte(`{"status":"successful"}`),
	}

	w, resp := env.do(t, http.MethodPost, "/api/verify-payment", verifyBody(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !resp.Success {
		t.Fatal("expected success envelope")
	}

	stored := env.repo.registrations[reg.ID]
	if stored.PaymentStatus != model.PaymentStatusPaid {
		t.Fatalf("expected paid, got %q", stored.PaymentStatus)
	}
	if !verificationCodePattern.MatchString(stored.VerificationCode) {
		t.Fatalf("unexpected verification code: %q", stored.VerificationCode)
	}
	if stored.TransactionID != "8841566" {
		t.Errorf("unexpected transaction id: %q", stored.TransactionID)
	}
	if len(env.repo.transactions) != 1 {
		t.Fatalf("expected 1 transaction row, got %d", len(env.repo.transactions))
	}

	if len(env.queue.payloads) != 1 {
		t.Fatalf("expected 1 queued email, got %d", len(env.queue.payloads))
	}
	var job map[string]string
	if err := json.Unmarshal(env.queue.payloads[0], &job); err != nil {
		t.Fatalf("decode email job: %v", err)
	}
	if job["to"] != reg.Email || job["code"] != stored.VerificationCode {
		t.Fatalf("unexpected email job: %+v", job)
	}
}

func TestVerifyPaymentRejectsNonSuccessfulStatus(t *testing.T) {
	env := newTestEnv(t)
	reg := env.seedRegistration()
	env.provider.verifyResult = &payment.VerificationResult{Status: "pending", Currency: "RWF"}

	w, resp := env.do(t, http.MethodPost, "/api/verify-payment", verifyBody(), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp.Message != dto.MsgVerifyFailed {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if env.repo.registrations[reg.ID].PaymentStatus != model.PaymentStatusUnpaid {
		t.Fatal("registration must stay unpaid")
	}
	if len(env.repo.transactions) != 0 {
		t.Fatal("no transaction row must be written")
	}
}

func TestVerifyPaymentRejectsWrongCurrency(t *testing.T) {
	env := newTestEnv(t)
	reg := env.seedRegistration()
	env.provider.verifyResult = &payment.VerificationResult{Status: payment.StatusSuccessful, Currency: "USD"}

	w, _ := env.do(t, http.MethodPost, "/api/verify-payment", verifyBody(), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if env.repo.registrations[reg.ID].PaymentStatus != model.PaymentStatusUnpaid {
		t.Fatal("registration must stay unpaid on currency mismatch")
	}
}

func TestVerifyPaymentAlreadyPaid(t *testing.T) {
	env := newTestEnv(t)
	reg := env.seedRegistration()
	reg.PaymentStatus = model.PaymentStatusPaid

	w, resp := env.do(t, http.MethodPost, "/api/verify-payment", verifyBody(), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp.Message != dto.MsgAlreadyPaid {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestVerifyPaymentStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegistration()
	env.repo.failMarkPaid = true
	env.provider.verifyResult = &payment.VerificationResult{Status: payment.StatusSuccessful, Currency: "RWF"}

	w, _ := env.do(t, http.MethodPost, "/api/verify-payment", verifyBody(), nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestVerifyPaymentQueueFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	env.seedRegistration()
	env.queue.err = errors.New("broker down")
	env.provider.verifyResult = &payment.VerificationResult{Status: payment.StatusSuccessful, Currency: "RWF"}

	w, resp := env.do(t, http.MethodPost, "/api/verify-payment", verifyBody(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 despite queue failure, got %d", w.Code)
	}
	if !resp.Success {
		t.Fatal("expected success envelope")
	}
}

func TestContact(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"message": "Do you accept remote interns?",
	}

	w, _ := env.do(t, http.MethodPost, "/api/contact", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if env.contact.calls != 1 {
		t.Fatalf("expected 1 send, got %d", env.contact.calls)
	}

	env.contact.err = errors.New("smtp down")
	w, _ = env.do(t, http.MethodPost, "/api/contact", body, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when relay fails, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodGet, "/api/health", nil, nil)
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("unexpected health response: %d %s", w.Code, w.Body.String())
	}
}

func TestAdminLogin(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	w, resp := env.do(t, http.MethodPost, "/api/admin/login", map[string]any{
		"email":    "admin@example.com",
		"password": "s3cret-pass",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	data, _ := json.Marshal(resp.Data)
	var out dto.AdminLoginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if out.Token == "" {
		t.Fatal("expected a token")
	}
	if _, err := env.guard.VerifyToken(out.Token); err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if _, ok := env.repo.sessions[out.Token]; !ok {
		t.Fatal("session row not created")
	}
	if len(env.repo.logs) != 1 || env.repo.logs[0].Action != "LOGIN" {
		t.Fatalf("expected LOGIN audit entry, got %+v", env.repo.logs)
	}
}

func TestAdminLoginBadPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	w, resp := env.do(t, http.MethodPost, "/api/admin/login", map[string]any{
		"email":    "admin@example.com",
		"password": "wrong-pass",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if resp.Message != dto.MsgBadCredentials {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/api/admin/profile",
		"/api/admin/dashboard",
		"/api/admin/registrations",
		"/api/admin/logs",
	} {
		w, resp := env.do(t, http.MethodGet, path, nil, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, w.Code)
		}
		if resp.Message != dto.MsgNoToken {
			t.Errorf("%s: unexpected message %q", path, resp.Message)
		}
	}
}

func TestAdminLogoutInvalidatesSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	headers := map[string]string{"Authorization": "Bearer " + token}

	w, _ := env.do(t, http.MethodPost, "/api/admin/logout", nil, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w, resp := env.do(t, http.MethodGet, "/api/admin/profile", nil, headers)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
	if resp.Message != dto.MsgInvalidSession {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestAdminDashboard(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	env.repo.stats = repo.DashboardStats{
		TotalRegistrations:  10,
		PaidRegistrations:   4,
		UnpaidRegistrations: 6,
		TodayRegistrations:  2,
		TotalRevenue:        200000,
	}
	env.repo.fieldCounts = []repo.FieldCount{{Field: "Software", Total: 8, Paid: 4}}
	env.repo.modeCounts = []repo.ModeCount{{Mode: "Online", Total: 10, Paid: 4}}

	w, resp := env.do(t, http.MethodGet, "/api/admin/dashboard", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	data, _ := json.Marshal(resp.Data)
	var out dto.DashboardResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if out.Summary.TotalRegistrations != 10 || out.Summary.TotalRevenue != 200000 {
		t.Fatalf("unexpected summary: %+v", out.Summary)
	}
	if len(out.FieldStatistics) != 1 || out.FieldStatistics[0].ConversionRate != 50 {
		t.Fatalf("unexpected field stats: %+v", out.FieldStatistics)
	}
}

func TestAdminUpdateRegistration(t *testing.T) {
	env := newTestEnv(t)
	reg := env.seedRegistration()
	token := env.login(t)
	headers := map[string]string{"Authorization": "Bearer " + token}

	w, _ := env.do(t, http.MethodPut, "/api/admin/registrations/not-a-uuid", map[string]any{
		"registration_status": "confirmed",
	}, headers)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}

	w, _ = env.do(t, http.MethodPut, "/api/admin/registrations/"+reg.ID, map[string]any{
		"registration_status": "confirmed",
		"notes":               "documents checked",
	}, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if reg.RegistrationStatus != model.RegistrationStatusConfirmed {
		t.Fatalf("expected confirmed, got %q", reg.RegistrationStatus)
	}
	if reg.AdminReviewedBy != adminID {
		t.Fatalf("expected reviewer %q, got %q", adminID, reg.AdminReviewedBy)
	}
}

func TestAdminExportRegistrations(t *testing.T) {
	env := newTestEnv(t)
	reg := env.seedRegistration()
	reg.Address = `KG 1 Ave, "Kigali"`
	token := env.login(t)

	w, _ := env.do(t, http.MethodGet, "/api/admin/registrations/export", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Fatalf("unexpected content type: %q", ct)
	}

	lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], `"KG 1 Ave, ""Kigali"""`) {
		t.Fatalf("commas and quotes must survive quoting, got %q", lines[1])
	}
}
