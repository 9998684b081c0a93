package mailworker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"internhub/internal/mailer"
	"internhub/internal/rabbit"
)

// EmailJob is the queue payload for one verification email. Dispatch is
// fire-and-forget from the caller's point of view: a paid registration stays
// paid whether or not the email ever leaves.
type EmailJob struct {
	To       string `json:"to"`
	FullName string `json:"full_name"`
	Field    string `json:"field"`
	Code     string `json:"code"`
}

type Sender interface {
	SendVerificationEmail(to, fullName, field, code string) error
}

type Reader struct {
	RMQ    *rabbit.Client
	sender Sender
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, sender Sender) *Reader {
	return &Reader{
		RMQ:    rmq,
		sender: sender,
		done:   make(chan struct{}),
	}
}

var _ Sender = (*mailer.Mailer)(nil)

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("email worker started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var job EmailJob
			if err := json.Unmarshal(body, &job); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("failed to unmarshal email job: %s", string(body))
				// Poison message: drop it, requeueing would loop forever.
				return nil
			}

			zlog.Logger.Info().
				Str("email", job.To).
				Msg("received email job")

			if err := r.sender.SendVerificationEmail(job.To, job.FullName, job.Field, job.Code); err != nil {
				zlog.Logger.Warn().
					Err(err).
					Str("email", job.To).
					Msg("failed to send verification email, requeueing")
				return err
			}
			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("email worker stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
