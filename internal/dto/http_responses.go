package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"
)

const (
	MsgValidationError    = "Validation error"
	MsgInternalError      = "Internal server error"
	MsgRegistrationFailed = "Registration failed. Please try again."
	MsgDuplicateEmail     = "Email already registered for internship"
	MsgRegistrationMissed = "Registration not found"
	MsgAlreadyPaid        = "Payment already completed"
	MsgPaymentInitFailed  = "Payment initiation failed"
	MsgVerifyFailed       = "Payment verification failed"
	MsgBadCredentials     = "Invalid email or password"
	MsgInvalidSession     = "Invalid or expired session."
	MsgNoToken            = "Access denied. No token provided."
)

type RegisterInternshipRequest struct {
	FullName   string `json:"full_name" validate:"required,min=2,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,min=10,max=20"`
	Address    string `json:"address" validate:"required,min=5,max=500"`
	NationalID string `json:"national_id" validate:"required,natid"`
	Field      string `json:"field" validate:"required,track"`
	Mode       string `json:"mode" validate:"required,attendmode"`
}

type RegistrationSummary struct {
	ID            string `json:"id"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Field         string `json:"field"`
	Mode          string `json:"mode"`
	PaymentStatus string `json:"payment_status"`
}

type CreatePaymentRequest struct {
	RegistrationID string `json:"registration_id" validate:"required,uuid4"`
	Email          string `json:"email" validate:"required,email"`
	Amount         int64  `json:"amount" validate:"required,gt=0"`
}

type CreatePaymentResponse struct {
	PaymentLink    string `json:"payment_link"`
	TransactionRef string `json:"transaction_ref"`
}

type VerifyPaymentRequest struct {
	TransactionID  string `json:"transaction_id" validate:"required"`
	RegistrationID string `json:"registration_id" validate:"required,uuid4"`
}

type VerifyPaymentResponse struct {
	PaymentStatus        string `json:"payment_status"`
	VerificationCodeSent bool   `json:"verification_code_sent"`
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Message string `json:"message" validate:"required,min=5,max=5000"`
}

type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type AdminProfile struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
}

type AdminLoginResponse struct {
	Token     string       `json:"token"`
	Admin     AdminProfile `json:"admin"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type UpdateRegistrationRequest struct {
	PaymentStatus      string `json:"payment_status" validate:"omitempty,oneof=unpaid paid failed"`
	RegistrationStatus string `json:"registration_status" validate:"omitempty,oneof=registered confirmed rejected"`
	Notes              string `json:"notes" validate:"omitempty,max=2000"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type PagedResponse struct {
	Items      any        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

type DashboardSummary struct {
	TotalRegistrations  int64 `json:"total_registrations"`
	PaidRegistrations   int64 `json:"paid_registrations"`
	UnpaidRegistrations int64 `json:"unpaid_registrations"`
	TotalRevenue        int64 `json:"total_revenue"`
	TodayRegistrations  int64 `json:"today_registrations"`
}

type FieldStat struct {
	Field              string `json:"field"`
	TotalRegistrations int64  `json:"total_registrations"`
	PaidRegistrations  int64  `json:"paid_registrations"`
	ConversionRate     int64  `json:"conversion_rate"`
}

type ModeStat struct {
	Mode               string `json:"mode"`
	TotalRegistrations int64  `json:"total_registrations"`
	PaidRegistrations  int64  `json:"paid_registrations"`
}

type DashboardResponse struct {
	Summary             DashboardSummary      `json:"summary"`
	FieldStatistics     []FieldStat           `json:"field_statistics"`
	ModeStatistics      []ModeStat            `json:"mode_statistics"`
	RecentRegistrations []RegistrationSummary `json:"recent_registrations"`
}

// Response is the uniform envelope every endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Details string `json:"details,omitempty"`
}

func BadRequestError(c *ginext.Context, message string) {
	c.JSON(400, Response{Success: false, Message: message})
}

func ValidationError(c *ginext.Context, details string) {
	c.JSON(400, Response{Success: false, Message: MsgValidationError, Details: details})
}

func NotFoundError(c *ginext.Context, message string) {
	c.JSON(404, Response{Success: false, Message: message})
}

func UnauthorizedError(c *ginext.Context, message string) {
	c.JSON(401, Response{Success: false, Message: message})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{Success: false, Message: MsgInternalError})
}

func ServerError(c *ginext.Context, message string) {
	c.JSON(500, Response{Success: false, Message: message})
}

func SuccessResponse(c *ginext.Context, message string, data any) {
	c.JSON(200, Response{Success: true, Message: message, Data: data})
}

func SuccessCreatedResponse(c *ginext.Context, message string, data any) {
	c.JSON(201, Response{Success: true, Message: message, Data: data})
}
