package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/wb-go/wbf/ginext"

	"internhub/internal/dto"
	"internhub/internal/model"
)

var exportHeader = []string{
	"id", "full_name", "email", "phone", "address", "national_id",
	"field", "mode", "payment_status", "registration_status",
	"payment_reference", "payment_amount", "verification_code", "created_at",
}

// AdminExportRegistrations streams the filtered registrations as CSV. Every
// field is double-quoted so embedded commas survive round trips through
// spreadsheet tools.
func (s *service) AdminExportRegistrations(ctx *ginext.Context) {
	filter := registrationFilterFromQuery(ctx)

	regs, _, err := s.repo.ListRegistrations(ctx.Request.Context(), filter)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to export registrations")
		dto.ServerError(ctx, "Failed to export registrations")
		return
	}

	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Header("Content-Disposition", `attachment; filename="registrations.csv"`)
	ctx.String(200, buildRegistrationsCSV(regs))
}

func buildRegistrationsCSV(regs []model.Registration) string {
	var b strings.Builder
	writeCSVRow(&b, exportHeader)
	for _, reg := range regs {
		writeCSVRow(&b, []string{
			reg.ID,
			reg.FullName,
			reg.Email,
			reg.Phone,
			reg.Address,
			reg.NationalID,
			reg.Field,
			reg.Mode,
			reg.PaymentStatus,
			reg.RegistrationStatus,
			reg.PaymentReference,
			strconv.FormatInt(reg.PaymentAmount, 10),
			reg.VerificationCode,
			reg.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return b.String()
}

func writeCSVRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
