package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"internhub/internal/auth"
	"internhub/internal/dto"
	"internhub/internal/mailworker"
	"internhub/internal/model"
	"internhub/internal/payment"
	"internhub/internal/repo"
	"internhub/pkg/validator"
)

const (
	actionLogin              = "LOGIN"
	actionLogout             = "LOGOUT"
	actionUpdateRegistration = "UPDATE_REGISTRATION"

	defaultPageLimit = 50
	maxPageLimit     = 200
)

type PaymentProvider interface {
	CreateCharge(ctx context.Context, in payment.ChargeInput) (string, error)
	VerifyTransaction(ctx context.Context, transactionID string) (*payment.VerificationResult, error)
	Currency() string
}

type ContactSender interface {
	SendContactEmail(name, email, message string) error
}

type EmailQueue interface {
	Publish(message []byte) error
}

type Service interface {
	RegisterInternship(ctx *ginext.Context)
	CreatePayment(ctx *ginext.Context)
	VerifyPayment(ctx *ginext.Context)
	Contact(ctx *ginext.Context)
	Health(ctx *ginext.Context)

	AdminLogin(ctx *ginext.Context)
	AdminLogout(ctx *ginext.Context)
	AdminProfile(ctx *ginext.Context)
	AdminDashboard(ctx *ginext.Context)
	AdminRegistrations(ctx *ginext.Context)
	AdminExportRegistrations(ctx *ginext.Context)
	AdminUpdateRegistration(ctx *ginext.Context)
	AdminLogs(ctx *ginext.Context)
}

type service struct {
	repo      repo.Repository
	log       *zerolog.Logger
	guard     *auth.Guard
	provider  PaymentProvider
	contact   ContactSender
	queue     EmailQueue
	refPrefix string
}

func NewService(r repo.Repository, log *zerolog.Logger, guard *auth.Guard, provider PaymentProvider, contact ContactSender, queue EmailQueue, refPrefix string) Service {
	if refPrefix == "" {
		refPrefix = "INTERN"
	}
	return &service{
		repo:      r,
		log:       log,
		guard:     guard,
		provider:  provider,
		contact:   contact,
		queue:     queue,
		refPrefix: refPrefix,
	}
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateVerificationCode returns an 8-character uppercase alphanumeric code.
func generateVerificationCode() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

func (s *service) RegisterInternship(ctx *ginext.Context) {
	var req dto.RegisterInternshipRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ValidationError(ctx, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.ValidationError(ctx, verr.Error())
		return
	}

	reg := &model.Registration{
		ID:                 uuid.NewString(),
		FullName:           req.FullName,
		Email:              strings.TrimSpace(strings.ToLower(req.Email)),
		Phone:              req.Phone,
		Address:            req.Address,
		NationalID:         req.NationalID,
		Field:              req.Field,
		Mode:               req.Mode,
		PaymentStatus:      model.PaymentStatusUnpaid,
		RegistrationStatus: model.RegistrationStatusRegistered,
	}

	if err := s.repo.CreateRegistration(ctx.Request.Context(), reg); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			dto.BadRequestError(ctx, dto.MsgDuplicateEmail)
			return
		}
		s.log.Error().Err(err).Msg("failed to create registration")
		dto.ServerError(ctx, dto.MsgRegistrationFailed)
		return
	}

	s.log.Info().Str("registration_id", reg.ID).Str("field", reg.Field).Msg("registration created")

	dto.SuccessCreatedResponse(ctx, "Registration successful! Please proceed to payment.", dto.RegistrationSummary{
		ID:            reg.ID,
		FullName:      reg.FullName,
		Email:         reg.Email,
		Field:         reg.Field,
		Mode:          reg.Mode,
		PaymentStatus: reg.PaymentStatus,
	})
}

func (s *service) CreatePayment(ctx *ginext.Context) {
	var req dto.CreatePaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ValidationError(ctx, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.ValidationError(ctx, verr.Error())
		return
	}

	reg, err := s.repo.GetRegistrationByID(ctx.Request.Context(), req.RegistrationID)
	if err != nil {
		if errors.Is(err, repo.ErrRegistrationNotFound) {
			dto.NotFoundError(ctx, dto.MsgRegistrationMissed)
			return
		}
		s.log.Error().Err(err).Msg("failed to load registration for payment")
		dto.InternalServerError(ctx)
		return
	}
	if reg.PaymentStatus == model.PaymentStatusPaid {
		dto.BadRequestError(ctx, dto.MsgAlreadyPaid)
		return
	}

	txRef := s.refPrefix + "-" + reg.ID + "-" + strconv.FormatInt(time.Now().UnixMilli(), 10)

	link, err := s.provider.CreateCharge(ctx.Request.Context(), payment.ChargeInput{
		TxRef:       txRef,
		Amount:      req.Amount,
		Currency:    s.provider.Currency(),
		Email:       req.Email,
		PhoneNumber: reg.Phone,
		FullName:    reg.FullName,
		Title:       "Internship Program Fee",
		Description: "Payment for " + reg.Field + " internship - " + reg.Mode + " mode",
	})
	if err != nil {
		if errors.Is(err, payment.ErrProviderRejected) {
			s.log.Warn().Err(err).Str("registration_id", reg.ID).Msg("charge rejected by provider")
			dto.BadRequestError(ctx, dto.MsgPaymentInitFailed)
			return
		}
		s.log.Error().Err(err).Str("registration_id", reg.ID).Msg("charge creation failed")
		dto.InternalServerError(ctx)
		return
	}

	if err := s.repo.SetPaymentReference(ctx.Request.Context(), reg.ID, txRef, req.Amount); err != nil {
		// The charge exists either way; the reference is bookkeeping.
		s.log.Warn().Err(err).Str("registration_id", reg.ID).Msg("failed to store payment reference")
	}

	s.log.Info().Str("registration_id", reg.ID).Str("tx_ref", txRef).Msg("payment initiated")

	dto.SuccessResponse(ctx, "Payment initiated successfully", dto.CreatePaymentResponse{
		PaymentLink:    link,
		TransactionRef: txRef,
	})
}

func (s *service) VerifyPayment(ctx *ginext.Context) {
	var req dto.VerifyPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ValidationError(ctx, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.ValidationError(ctx, verr.Error())
		return
	}

	reg, err := s.repo.GetRegistrationByID(ctx.Request.Context(), req.RegistrationID)
	if err != nil {
		if errors.Is(err, repo.ErrRegistrationNotFound) {
			dto.NotFoundError(ctx, dto.MsgRegistrationMissed)
			return
		}
		s.log.Error().Err(err).Msg("failed to load registration for verification")
		dto.InternalServerError(ctx)
		return
	}
	if reg.PaymentStatus == model.PaymentStatusPaid {
		dto.BadRequestError(ctx, dto.MsgAlreadyPaid)
		return
	}

	result, err := s.provider.VerifyTransaction(ctx.Request.Context(), req.TransactionID)
	if err != nil {
		if errors.Is(err, payment.ErrProviderRejected) {
			dto.BadRequestError(ctx, dto.MsgVerifyFailed)
			return
		}
		s.log.Error().Err(err).Str("transaction_id", req.TransactionID).Msg("provider verification failed")
		dto.InternalServerError(ctx)
		return
	}

	// Paid only on the exact combination: provider says successful and the
	// currency is the one we charge in. Anything else leaves the record as is.
	if result.Status != payment.StatusSuccessful || result.Currency != s.provider.Currency() {
		s.log.Warn().
			Str("registration_id", reg.ID).
			Str("provider_status", result.Status).
			Str("currency", result.Currency).
			Msg("payment verification rejected")
		dto.BadRequestError(ctx, dto.MsgVerifyFailed)
		return
	}

	code := generateVerificationCode()
	txn := &model.PaymentTransaction{
		ID:                   uuid.NewString(),
		RegistrationID:       reg.ID,
		TransactionReference: result.TxRef,
		Amount:               result.Amount,
		Currency:             result.Currency,
		Status:               result.Status,
		PaymentMethod:        result.PaymentType,
		GatewayResponse:      result.Raw,
		ProcessedAt:          time.Now().UTC(),
	}

	updated, err := s.repo.MarkRegistrationPaidTx(ctx.Request.Context(), txn, req.TransactionID, code)
	if err != nil {
		s.log.Error().Err(err).Str("registration_id", reg.ID).Msg("failed to record verified payment")
		dto.ServerError(ctx, "Payment verified but failed to update records")
		return
	}

	s.enqueueVerificationEmail(updated, code)

	s.log.Info().Str("registration_id", reg.ID).Msg("payment verified")

	dto.SuccessResponse(ctx, "Payment verified successfully! Verification code sent to your email.", dto.VerifyPaymentResponse{
		PaymentStatus:        model.PaymentStatusPaid,
		VerificationCodeSent: true,
	})
}

// enqueueVerificationEmail hands the email off to the dispatch queue. A
// failure here is logged and swallowed: the payment is confirmed regardless.
func (s *service) enqueueVerificationEmail(reg *model.Registration, code string) {
	job := mailworker.EmailJob{
		To:       reg.Email,
		FullName: reg.FullName,
		Field:    reg.Field,
		Code:     code,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal email job")
		return
	}
	if err := s.queue.Publish(payload); err != nil {
		s.log.Warn().Err(err).Str("email", reg.Email).Msg("failed to enqueue verification email")
	}
}

func (s *service) Contact(ctx *ginext.Context) {
	var req dto.ContactRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ValidationError(ctx, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.ValidationError(ctx, verr.Error())
		return
	}

	if err := s.contact.SendContactEmail(req.Name, req.Email, req.Message); err != nil {
		s.log.Error().Err(err).Msg("contact relay failed")
		dto.ServerError(ctx, "Failed to send message")
		return
	}

	dto.SuccessResponse(ctx, "Message sent successfully", nil)
}

func (s *service) Health(ctx *ginext.Context) {
	dto.SuccessResponse(ctx, "Server is running", map[string]string{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *service) AdminLogin(ctx *ginext.Context) {
	var req dto.AdminLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ValidationError(ctx, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.ValidationError(ctx, verr.Error())
		return
	}

	admin, err := s.guard.Authenticate(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			dto.UnauthorizedError(ctx, dto.MsgBadCredentials)
			return
		}
		s.log.Error().Err(err).Msg("admin authentication failed")
		dto.InternalServerError(ctx)
		return
	}

	token, session, err := s.guard.IssueSession(ctx.Request.Context(), admin, ctx.ClientIP(), ctx.Request.UserAgent())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create admin session")
		dto.ServerError(ctx, "Login failed. Please try again.")
		return
	}

	now := time.Now().UTC()
	if err := s.repo.TouchAdminLastLogin(ctx.Request.Context(), admin.ID, now); err != nil {
		s.log.Warn().Err(err).Msg("failed to update last login")
	}
	s.appendSystemLog(ctx, admin.ID, actionLogin)

	s.log.Info().Str("admin_id", admin.ID).Msg("admin logged in")

	dto.SuccessResponse(ctx, "Login successful", dto.AdminLoginResponse{
		Token: token,
		Admin: dto.AdminProfile{
			ID:        admin.ID,
			Username:  admin.Username,
			Email:     admin.Email,
			FullName:  admin.FullName,
			Role:      admin.Role,
			LastLogin: admin.LastLogin,
		},
		ExpiresAt: session.ExpiresAt,
	})
}

func (s *service) AdminLogout(ctx *ginext.Context) {
	session, ok := auth.SessionFrom(ctx)
	if !ok {
		dto.UnauthorizedError(ctx, dto.MsgInvalidSession)
		return
	}

	if err := s.repo.DeactivateSession(ctx.Request.Context(), session.ID); err != nil {
		s.log.Error().Err(err).Msg("failed to deactivate session")
		dto.InternalServerError(ctx)
		return
	}
	s.appendSystemLog(ctx, session.AdminUserID, actionLogout)

	dto.SuccessResponse(ctx, "Logout successful", nil)
}

func (s *service) AdminProfile(ctx *ginext.Context) {
	admin, ok := auth.AdminFrom(ctx)
	if !ok {
		dto.UnauthorizedError(ctx, dto.MsgInvalidSession)
		return
	}

	dto.SuccessResponse(ctx, "", dto.AdminProfile{
		ID:        admin.ID,
		Username:  admin.Username,
		Email:     admin.Email,
		FullName:  admin.FullName,
		Role:      admin.Role,
		LastLogin: admin.LastLogin,
		CreatedAt: admin.CreatedAt,
	})
}

func (s *service) AdminDashboard(ctx *ginext.Context) {
	rctx := ctx.Request.Context()

	stats, err := s.repo.DashboardStats(rctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to aggregate dashboard stats")
		dto.ServerError(ctx, "Failed to fetch dashboard data")
		return
	}
	fieldCounts, err := s.repo.FieldCounts(rctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to aggregate field counts")
		dto.ServerError(ctx, "Failed to fetch dashboard data")
		return
	}
	modeCounts, err := s.repo.ModeCounts(rctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to aggregate mode counts")
		dto.ServerError(ctx, "Failed to fetch dashboard data")
		return
	}
	recent, err := s.repo.RecentRegistrations(rctx, 5)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to fetch recent registrations")
		dto.ServerError(ctx, "Failed to fetch dashboard data")
		return
	}

	resp := dto.DashboardResponse{
		Summary: dto.DashboardSummary{
			TotalRegistrations:  stats.TotalRegistrations,
			PaidRegistrations:   stats.PaidRegistrations,
			UnpaidRegistrations: stats.UnpaidRegistrations,
			TotalRevenue:        stats.TotalRevenue,
			TodayRegistrations:  stats.TodayRegistrations,
		},
		FieldStatistics: make([]dto.FieldStat, 0, len(fieldCounts)),
		ModeStatistics:  make([]dto.ModeStat, 0, len(modeCounts)),
	}
	for _, fc := range fieldCounts {
		stat := dto.FieldStat{Field: fc.Field, TotalRegistrations: fc.Total, PaidRegistrations: fc.Paid}
		if fc.Total > 0 {
			stat.ConversionRate = fc.Paid * 100 / fc.Total
		}
		resp.FieldStatistics = append(resp.FieldStatistics, stat)
	}
	for _, mc := range modeCounts {
		resp.ModeStatistics = append(resp.ModeStatistics, dto.ModeStat{
			Mode: mc.Mode, TotalRegistrations: mc.Total, PaidRegistrations: mc.Paid,
		})
	}
	for _, reg := range recent {
		resp.RecentRegistrations = append(resp.RecentRegistrations, dto.RegistrationSummary{
			ID:            reg.ID,
			FullName:      reg.FullName,
			Email:         reg.Email,
			Field:         reg.Field,
			Mode:          reg.Mode,
			PaymentStatus: reg.PaymentStatus,
		})
	}

	dto.SuccessResponse(ctx, "", resp)
}

func registrationFilterFromQuery(ctx *ginext.Context) repo.RegistrationFilter {
	return repo.RegistrationFilter{
		PaymentStatus: ctx.Query("payment_status"),
		Field:         ctx.Query("field"),
		Mode:          ctx.Query("mode"),
		Search:        ctx.Query("search"),
	}
}

func pageParams(ctx *ginext.Context) (int, int) {
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func (s *service) AdminRegistrations(ctx *ginext.Context) {
	filter := registrationFilterFromQuery(ctx)
	filter.Page, filter.Limit = pageParams(ctx)

	regs, total, err := s.repo.ListRegistrations(ctx.Request.Context(), filter)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list registrations")
		dto.ServerError(ctx, "Failed to fetch registrations")
		return
	}

	pages := (total + int64(filter.Limit) - 1) / int64(filter.Limit)
	dto.SuccessResponse(ctx, "", dto.PagedResponse{
		Items: regs,
		Pagination: dto.Pagination{
			Page:  filter.Page,
			Limit: filter.Limit,
			Total: total,
			Pages: pages,
		},
	})
}

func (s *service) AdminUpdateRegistration(ctx *ginext.Context) {
	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		dto.ValidationError(ctx, "Invalid registration ID")
		return
	}

	var req dto.UpdateRegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.ValidationError(ctx, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.ValidationError(ctx, verr.Error())
		return
	}

	admin, ok := auth.AdminFrom(ctx)
	if !ok {
		dto.UnauthorizedError(ctx, dto.MsgInvalidSession)
		return
	}

	reg, err := s.repo.UpdateRegistrationReview(ctx.Request.Context(), id, repo.ReviewUpdate{
		PaymentStatus:      req.PaymentStatus,
		RegistrationStatus: req.RegistrationStatus,
		Notes:              req.Notes,
		ReviewedBy:         admin.ID,
	})
	if err != nil {
		if errors.Is(err, repo.ErrRegistrationNotFound) {
			dto.NotFoundError(ctx, dto.MsgRegistrationMissed)
			return
		}
		s.log.Error().Err(err).Msg("failed to update registration")
		dto.ServerError(ctx, "Failed to update registration")
		return
	}
	s.appendSystemLog(ctx, admin.ID, actionUpdateRegistration)

	dto.SuccessResponse(ctx, "Registration updated successfully", reg)
}

func (s *service) AdminLogs(ctx *ginext.Context) {
	page, limit := pageParams(ctx)

	logs, total, err := s.repo.ListSystemLogs(ctx.Request.Context(), page, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list system logs")
		dto.ServerError(ctx, "Failed to fetch logs")
		return
	}

	pages := (total + int64(limit) - 1) / int64(limit)
	dto.SuccessResponse(ctx, "", dto.PagedResponse{
		Items: logs,
		Pagination: dto.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	})
}

func (s *service) appendSystemLog(ctx *ginext.Context, adminID, action string) {
	entry := &model.SystemLog{
		AdminUserID: adminID,
		Action:      action,
		IPAddress:   ctx.ClientIP(),
		UserAgent:   ctx.Request.UserAgent(),
	}
	if err := s.repo.AppendSystemLog(ctx.Request.Context(), entry); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("failed to append system log")
	}
}
