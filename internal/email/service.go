package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"innata/internal/logger"
	"innata/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxTries       = 3
)

type Job struct {
	To      string    `json:"to"`
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Config struct {
	From     string
	FromName string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service queues notifications on Redis and delivers them from Start. Queueing
// is the only part callers wait on.
type Service struct {
	redis      *redis.Client
	cfg        Config
	send       sendFunc
	retryDelay time.Duration
}

func New(cfg Config, rdb *redis.Client) *Service {
	return &Service{
		redis:      rdb,
		cfg:        cfg,
		send:       smtp.SendMail,
		retryDelay: 5 * time.Second,
	}
}

func (s *Service) enqueue(ctx context.Context, to, kind, subject, body string) error {
	job := Job{
		To:      to,
		Type:    kind,
		Subject: subject,
		Body:    body,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		metrics.RecordEmail(kind, "queue_failed")
		return fmt.Errorf("queue email to %s: %w", to, err)
	}

	metrics.RecordEmail(kind, "queued")
	logger.Info("email queued", "type", kind, "to", to)
	return nil
}

func (s *Service) SendBookingConfirmation(ctx context.Context, to string, data BookingTemplateData) error {
	body, err := render(confirmationTemplate, data)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, to, "booking_confirmation", "Reservation confirmed - "+data.ClassName, body)
}

func (s *Service) SendCancellation(ctx context.Context, to string, data BookingTemplateData) error {
	body, err := render(cancellationTemplate, data)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, to, "booking_cancellation", "Reservation cancelled - "+data.ClassName, body)
}

func (s *Service) SendWaitlistNotice(ctx context.Context, to string, data WaitlistTemplateData) error {
	body, err := render(waitlistTemplate, data)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, to, "waitlist", "You are on the waitlist - "+data.ClassName, body)
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// Start delivers queued jobs until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("bad email job", "error", err)
		return
	}

	job.Tries++
	if err := s.deliver(job); err != nil {
		logger.Warn("email delivery failed", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxTries {
			time.Sleep(s.retryDelay)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, string(data))
		} else {
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Type, "sent")
	logger.Info("email sent", "type", job.Type, "to", job.To)
}

func (s *Service) deliver(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" && s.cfg.SMTPPass != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	return s.send(addr, auth, s.cfg.From, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, string(data))
	metrics.RecordEmail(job.Type, "failed")
	logger.Error("email moved to failed queue", "to", job.To, "tries", job.Tries)
}

// QueueLength reports the pending jobs and publishes the gauge.
func (s *Service) QueueLength(ctx context.Context) int64 {
	length, err := s.redis.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0
	}
	metrics.EmailQueueLength.Set(float64(length))
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
