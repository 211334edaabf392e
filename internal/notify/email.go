package notify

import (
	"context"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tripsignal/tripsignal/internal/models"
)

const resendBaseURL = "https://api.resend.com"

// EmailDeliverer sends through the Resend HTTP API. With email disabled it
// runs in safe mode: log what would have been sent and report success, so
// no SMTP-less environment ever burns retries.
type EmailDeliverer struct {
	client  *resty.Client
	from    string
	enabled bool
	logger  *log.Logger
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

func NewEmailDeliverer(apiKey, from string, enabled bool, logger *log.Logger) *EmailDeliverer {
	if logger == nil {
		logger = log.Default()
	}

	client := resty.New().
		SetBaseURL(resendBaseURL).
		SetTimeout(10 * time.Second).
		SetAuthToken(apiKey)

	return &EmailDeliverer{
		client:  client,
		from:    from,
		enabled: enabled,
		logger:  logger,
	}
}

func (d *EmailDeliverer) Deliver(ctx context.Context, msg *models.OutboxMessage) error {
	if !d.enabled {
		d.logger.Printf("EMAIL DISABLED (log-only): id=%s to=%s subject=%s", msg.ID, msg.ToEmail, msg.Subject)
		return nil
	}
	if d.client.Token == "" {
		return &SendError{Reason: "email api key is not configured"}
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(resendPayload{
			From:    d.from,
			To:      []string{msg.ToEmail},
			Subject: msg.Subject,
			Text:    msg.BodyText,
		}).
		Post("/emails")
	if err != nil {
		return &SendError{Reason: "email api request", Err: err}
	}
	if resp.IsError() {
		return &SendError{Reason: "email api status " + resp.Status()}
	}

	return nil
}

// LogDeliverer writes the notification as a structured log line. It never
// fails.
type LogDeliverer struct {
	logger *log.Logger
}

func NewLogDeliverer(logger *log.Logger) *LogDeliverer {
	if logger == nil {
		logger = log.Default()
	}
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(_ context.Context, msg *models.OutboxMessage) error {
	d.logger.Printf("LOG NOTIFICATION sent: id=%s to=%s subject=%s", msg.ID, msg.ToEmail, msg.Subject)
	return nil
}
