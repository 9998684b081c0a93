package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"internhub/internal/model"
)

var (
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrAdminNotFound        = errors.New("admin not found")
	ErrSessionNotFound      = errors.New("session not found")
)

// RegistrationFilter narrows admin listings and CSV exports. Limit <= 0 means
// no paging.
type RegistrationFilter struct {
	PaymentStatus string
	Field         string
	Mode          string
	Search        string
	Page          int
	Limit         int
}

type DashboardStats struct {
	TotalRegistrations  int64
	PaidRegistrations   int64
	UnpaidRegistrations int64
	TodayRegistrations  int64
	TotalRevenue        int64
}

type FieldCount struct {
	Field string
	Total int64
	Paid  int64
}

type ModeCount struct {
	Mode  string
	Total int64
	Paid  int64
}

type ReviewUpdate struct {
	PaymentStatus      string
	RegistrationStatus string
	Notes              string
	ReviewedBy         string
}

type Repository interface {
	CreateRegistration(ctx context.Context, reg *model.Registration) error
	GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error)
	SetPaymentReference(ctx context.Context, id, reference string, amount int64) error
	MarkRegistrationPaidTx(ctx context.Context, txn *model.PaymentTransaction, transactionID, verificationCode string) (*model.Registration, error)
	ListRegistrations(ctx context.Context, f RegistrationFilter) ([]model.Registration, int64, error)
	UpdateRegistrationReview(ctx context.Context, id string, upd ReviewUpdate) (*model.Registration, error)

	DashboardStats(ctx context.Context) (*DashboardStats, error)
	FieldCounts(ctx context.Context) ([]FieldCount, error)
	ModeCounts(ctx context.Context) ([]ModeCount, error)
	RecentRegistrations(ctx context.Context, limit int) ([]model.Registration, error)

	GetAdminByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	GetAdminByID(ctx context.Context, id string) (*model.AdminUser, error)
	CreateAdmin(ctx context.Context, admin *model.AdminUser) error
	TouchAdminLastLogin(ctx context.Context, id string, at time.Time) error

	CreateSession(ctx context.Context, s *model.AdminSession) error
	GetActiveSessionByToken(ctx context.Context, token string) (*model.AdminSession, error)
	DeactivateSession(ctx context.Context, id string) error

	AppendSystemLog(ctx context.Context, entry *model.SystemLog) error
	ListSystemLogs(ctx context.Context, page, limit int) ([]model.SystemLog, int64, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}
		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

const registrationColumns = `
	id, full_name, email, phone, address, national_id, field, mode,
	payment_status, registration_status, payment_reference, payment_amount,
	verification_code, transaction_id, payment_method, notes,
	admin_reviewed_by, admin_reviewed_at, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		reg        model.Registration
		paymentRef sql.NullString
		verCode    sql.NullString
		txID       sql.NullString
		payMethod  sql.NullString
		notes      sql.NullString
		reviewedBy sql.NullString
		reviewedAt sql.NullTime
	)
	err := row.Scan(
		&reg.ID, &reg.FullName, &reg.Email, &reg.Phone, &reg.Address,
		&reg.NationalID, &reg.Field, &reg.Mode,
		&reg.PaymentStatus, &reg.RegistrationStatus, &paymentRef, &reg.PaymentAmount,
		&verCode, &txID, &payMethod, &notes,
		&reviewedBy, &reviewedAt, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.PaymentReference = paymentRef.String
	reg.VerificationCode = verCode.String
	reg.TransactionID = txID.String
	reg.PaymentMethod = payMethod.String
	reg.Notes = notes.String
	reg.AdminReviewedBy = reviewedBy.String
	if reviewedAt.Valid {
		reg.AdminReviewedAt = &reviewedAt.Time
	}
	return &reg, nil
}

// CreateRegistration relies on the UNIQUE constraint on email: the insert
// itself is the duplicate check, there is no read-before-write.
func (r *repository) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	query := `
		INSERT INTO internship_requests
			(id, full_name, email, phone, address, national_id, field, mode,
			 payment_status, registration_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		reg.ID, reg.FullName, reg.Email, reg.Phone, reg.Address,
		reg.NationalID, reg.Field, reg.Mode,
		reg.PaymentStatus, reg.RegistrationStatus,
	).Scan(&reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}

func (r *repository) GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM internship_requests WHERE id = $1`
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

func (r *repository) SetPaymentReference(ctx context.Context, id, reference string, amount int64) error {
	query := `
		UPDATE internship_requests
		SET payment_reference = $1, payment_amount = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING id
	`
	var got string
	if err := r.db.QueryRowContext(ctx, query, reference, amount, id).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to set payment reference: %w", err)
	}
	return nil
}

// MarkRegistrationPaidTx flips the registration to paid and appends the
// payment transaction row inside one database transaction, so the two writes
// land together or not at all.
func (r *repository) MarkRegistrationPaidTx(ctx context.Context, txn *model.PaymentTransaction, transactionID, verificationCode string) (*model.Registration, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE internship_requests
		SET payment_status = $1, verification_code = $2, transaction_id = $3,
		    payment_method = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING ` + registrationColumns
	reg, err := scanRegistration(tx.QueryRowContext(ctx, query,
		model.PaymentStatusPaid, verificationCode, transactionID, txn.PaymentMethod, txn.RegistrationID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to mark registration paid: %w", err)
	}

	insert := `
		INSERT INTO payment_transactions
			(id, registration_id, transaction_reference, amount, currency,
			 status, payment_method, gateway_response, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.ExecContext(ctx, insert,
		txn.ID, txn.RegistrationID, txn.TransactionReference, txn.Amount,
		txn.Currency, txn.Status, txn.PaymentMethod, txn.GatewayResponse, txn.ProcessedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert payment transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment transaction: %w", err)
	}
	return reg, nil
}

func (f RegistrationFilter) where() (string, []any) {
	clause := " WHERE 1=1"
	var args []any
	if f.PaymentStatus != "" {
		args = append(args, f.PaymentStatus)
		clause += fmt.Sprintf(" AND payment_status = $%d", len(args))
	}
	if f.Field != "" {
		args = append(args, f.Field)
		clause += fmt.Sprintf(" AND field = $%d", len(args))
	}
	if f.Mode != "" {
		args = append(args, f.Mode)
		clause += fmt.Sprintf(" AND mode = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		clause += fmt.Sprintf(" AND (full_name ILIKE $%d OR email ILIKE $%d)", len(args), len(args))
	}
	return clause, args
}

func (r *repository) ListRegistrations(ctx context.Context, f RegistrationFilter) ([]model.Registration, int64, error) {
	clause, args := f.where()

	var total int64
	countQuery := `SELECT COUNT(*) FROM internship_requests` + clause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count registrations: %w", err)
	}

	query := `SELECT ` + registrationColumns + ` FROM internship_requests` + clause + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, (page-1)*f.Limit)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, total, rows.Err()
}

func (r *repository) UpdateRegistrationReview(ctx context.Context, id string, upd ReviewUpdate) (*model.Registration, error) {
	query := `
		UPDATE internship_requests
		SET payment_status = COALESCE(NULLIF($1, ''), payment_status),
		    registration_status = COALESCE(NULLIF($2, ''), registration_status),
		    notes = COALESCE(NULLIF($3, ''), notes),
		    admin_reviewed_by = $4,
		    admin_reviewed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $5
		RETURNING ` + registrationColumns
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query,
		upd.PaymentStatus, upd.RegistrationStatus, upd.Notes, upd.ReviewedBy, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to update registration: %w", err)
	}
	return reg, nil
}

func (r *repository) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE payment_status = 'paid'),
		       COUNT(*) FILTER (WHERE payment_status = 'unpaid'),
		       COUNT(*) FILTER (WHERE created_at >= CURRENT_DATE)
		FROM internship_requests
	`
	if err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalRegistrations, &stats.PaidRegistrations,
		&stats.UnpaidRegistrations, &stats.TodayRegistrations,
	); err != nil {
		return nil, fmt.Errorf("failed to aggregate registrations: %w", err)
	}

	revenue := `SELECT COALESCE(SUM(amount), 0) FROM payment_transactions WHERE status = 'successful'`
	if err := r.db.QueryRowContext(ctx, revenue).Scan(&stats.TotalRevenue); err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	return &stats, nil
}

func (r *repository) FieldCounts(ctx context.Context) ([]FieldCount, error) {
	query := `
		SELECT field, COUNT(*), COUNT(*) FILTER (WHERE payment_status = 'paid')
		FROM internship_requests
		GROUP BY field
		ORDER BY COUNT(*) DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to group by field: %w", err)
	}
	defer rows.Close()

	var out []FieldCount
	for rows.Next() {
		var fc FieldCount
		if err := rows.Scan(&fc.Field, &fc.Total, &fc.Paid); err != nil {
			return nil, fmt.Errorf("failed to scan field count: %w", err)
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

func (r *repository) ModeCounts(ctx context.Context) ([]ModeCount, error) {
	query := `
		SELECT mode, COUNT(*), COUNT(*) FILTER (WHERE payment_status = 'paid')
		FROM internship_requests
		GROUP BY mode
		ORDER BY COUNT(*) DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to group by mode: %w", err)
	}
	defer rows.Close()

	var out []ModeCount
	for rows.Next() {
		var mc ModeCount
		if err := rows.Scan(&mc.Mode, &mc.Total, &mc.Paid); err != nil {
			return nil, fmt.Errorf("failed to scan mode count: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

func (r *repository) RecentRegistrations(ctx context.Context, limit int) ([]model.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM internship_requests ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

const adminColumns = `id, username, email, password_hash, full_name, role, is_active, last_login, created_at`

func scanAdmin(row rowScanner) (*model.AdminUser, error) {
	var (
		admin     model.AdminUser
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&admin.ID, &admin.Username, &admin.Email, &admin.PasswordHash,
		&admin.FullName, &admin.Role, &admin.IsActive, &lastLogin, &admin.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		admin.LastLogin = &lastLogin.Time
	}
	return &admin, nil
}

func (r *repository) GetAdminByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_users WHERE email = $1 AND is_active = TRUE`
	admin, err := scanAdmin(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return admin, nil
}

func (r *repository) GetAdminByID(ctx context.Context, id string) (*model.AdminUser, error) {
	query := `SELECT ` + adminColumns + ` FROM admin_users WHERE id = $1 AND is_active = TRUE`
	admin, err := scanAdmin(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return admin, nil
}

func (r *repository) CreateAdmin(ctx context.Context, admin *model.AdminUser) error {
	query := `
		INSERT INTO admin_users (id, username, email, password_hash, full_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (email) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query,
		admin.ID, admin.Username, admin.Email, admin.PasswordHash, admin.FullName, admin.Role,
	); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (r *repository) TouchAdminLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE admin_users SET last_login = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *repository) CreateSession(ctx context.Context, s *model.AdminSession) error {
	query := `
		INSERT INTO admin_sessions (id, admin_user_id, session_token, is_active, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, TRUE, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		s.ID, s.AdminUserID, s.SessionToken, s.ExpiresAt, s.IPAddress, s.UserAgent,
	); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *repository) GetActiveSessionByToken(ctx context.Context, token string) (*model.AdminSession, error) {
	query := `
		SELECT id, admin_user_id, session_token, is_active, expires_at, ip_address, user_agent, created_at
		FROM admin_sessions
		WHERE session_token = $1 AND is_active = TRUE AND expires_at > NOW()
	`
	var (
		s         model.AdminSession
		ipAddr    sql.NullString
		userAgent sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&s.ID, &s.AdminUserID, &s.SessionToken, &s.IsActive, &s.ExpiresAt,
		&ipAddr, &userAgent, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.IPAddress = ipAddr.String
	s.UserAgent = userAgent.String
	return &s, nil
}

// DeactivateSession flips is_active instead of deleting: invalidated sessions
// stay visible for audit.
func (r *repository) DeactivateSession(ctx context.Context, id string) error {
	query := `UPDATE admin_sessions SET is_active = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	return nil
}

func (r *repository) AppendSystemLog(ctx context.Context, entry *model.SystemLog) error {
	query := `
		INSERT INTO system_logs (admin_user_id, action, ip_address, user_agent)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query,
		entry.AdminUserID, entry.Action, entry.IPAddress, entry.UserAgent,
	); err != nil {
		return fmt.Errorf("failed to append system log: %w", err)
	}
	return nil
}

func (r *repository) ListSystemLogs(ctx context.Context, page, limit int) ([]model.SystemLog, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM system_logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count system logs: %w", err)
	}

	if page < 1 {
		page = 1
	}
	query := `
		SELECT l.id, l.admin_user_id, COALESCE(a.full_name, ''), COALESCE(a.email, ''),
		       l.action, COALESCE(l.ip_address, ''), COALESCE(l.user_agent, ''), l.created_at
		FROM system_logs l
		LEFT JOIN admin_users a ON a.id = l.admin_user_id
		ORDER BY l.created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list system logs: %w", err)
	}
	defer rows.Close()

	var logs []model.SystemLog
	for rows.Next() {
		var entry model.SystemLog
		if err := rows.Scan(
			&entry.ID, &entry.AdminUserID, &entry.AdminName, &entry.AdminEmail,
			&entry.Action, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan system log: %w", err)
		}
		logs = append(logs, entry)
	}
	return logs, total, rows.Err()
}
