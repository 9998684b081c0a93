package model

import "time"

const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
	PaymentStatusFailed = "failed"

	RegistrationStatusRegistered = "registered"
	RegistrationStatusConfirmed  = "confirmed"
	RegistrationStatusRejected   = "rejected"
)

type Registration struct {
	ID                 string     `db:"id" json:"id"`
	FullName           string     `db:"full_name" json:"full_name"`
	Email              string     `db:"email" json:"email"`
	Phone              string     `db:"phone" json:"phone"`
	Address            string     `db:"address" json:"address"`
	NationalID         string     `db:"national_id" json:"national_id"`
	Field              string     `db:"field" json:"field"`
	Mode               string     `db:"mode" json:"mode"`
	PaymentStatus      string     `db:"payment_status" json:"payment_status"`
	RegistrationStatus string     `db:"registration_status" json:"registration_status"`
	PaymentReference   string     `db:"payment_reference,omitempty" json:"payment_reference,omitempty"`
	PaymentAmount      int64      `db:"payment_amount" json:"payment_amount"`
	VerificationCode   string     `db:"verification_code,omitempty" json:"verification_code,omitempty"`
	TransactionID      string     `db:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	PaymentMethod      string     `db:"payment_method,omitempty" json:"payment_method,omitempty"`
	Notes              string     `db:"notes,omitempty" json:"notes,omitempty"`
	AdminReviewedBy    string     `db:"admin_reviewed_by,omitempty" json:"admin_reviewed_by,omitempty"`
	AdminReviewedAt    *time.Time `db:"admin_reviewed_at,omitempty" json:"admin_reviewed_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// PaymentTransaction is append-only: one row per successfully verified charge.
type PaymentTransaction struct {
	ID                   string    `db:"id" json:"id"`
	RegistrationID       string    `db:"registration_id" json:"registration_id"`
	TransactionReference string    `db:"transaction_reference" json:"transaction_reference"`
	Amount               int64     `db:"amount" json:"amount"`
	Currency             string    `db:"currency" json:"currency"`
	Status               string    `db:"status" json:"status"`
	PaymentMethod        string    `db:"payment_method,omitempty" json:"payment_method,omitempty"`
	GatewayResponse      []byte    `db:"gateway_response,omitempty" json:"gateway_response,omitempty"`
	ProcessedAt          time.Time `db:"processed_at" json:"processed_at"`
}

type AdminUser struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         string     `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLogin    *time.Time `db:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// AdminSession is the server-side half of an admin login: the bearer token is
// only honored while an active, unexpired session row exists for it.
type AdminSession struct {
	ID           string    `db:"id" json:"id"`
	AdminUserID  string    `db:"admin_user_id" json:"admin_user_id"`
	SessionToken string    `db:"session_token" json:"-"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	IPAddress    string    `db:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent    string    `db:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type SystemLog struct {
	ID          int64     `db:"id" json:"id"`
	AdminUserID string    `db:"admin_user_id" json:"admin_user_id"`
	AdminName   string    `db:"admin_name,omitempty" json:"admin_name,omitempty"`
	AdminEmail  string    `db:"admin_email,omitempty" json:"admin_email,omitempty"`
	Action      string    `db:"action" json:"action"`
	IPAddress   string    `db:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent   string    `db:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
