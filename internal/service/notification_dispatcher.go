package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/groupbuy_api/internal/config"
	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/pkg/mailer"
)

// Mailer sends one email and returns the provider message id.
type Mailer interface {
	Send(ctx context.Context, msg *mailer.Message) (string, error)
}

// NotificationDispatcher emails staff about new orders and requests. Messages
// are queued after the submission is stored and sent by Start; failures are
// only logged.
type NotificationDispatcher struct {
	mailer  Mailer
	from    string
	to      []string
	timeout time.Duration
	queue   chan *mailer.Message
	done    chan struct{}
}

// NewNotificationDispatcher constructs a dispatcher. m may be nil, in which
// case every notification is skipped.
func NewNotificationDispatcher(m Mailer, cfg config.MailConfig) *NotificationDispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &NotificationDispatcher{
		mailer:  m,
		from:    cfg.From,
		to:      cfg.To,
		timeout: timeout,
		queue:   make(chan *mailer.Message, size),
		done:    make(chan struct{}),
	}
}

func (d *NotificationDispatcher) enabled() bool {
	return d.mailer != nil && d.from != "" && len(d.to) > 0
}

func (d *NotificationDispatcher) OrderCreated(o *models.Order) {
	var b strings.Builder
	fmt.Fprintf(&b, "訂單編號: %s\n", o.OrderID)
	fmt.Fprintf(&b, "會員編號: %s\n", o.MemberID)
	fmt.Fprintf(&b, "Email: %s\n", o.Email)
	fmt.Fprintf(&b, "匯款末五碼: %s\n", o.LastFiveDigits)
	if o.TaxID != "" {
		fmt.Fprintf(&b, "統一編號: %s\n", o.TaxID)
	}
	b.WriteString("\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "- %s x%d  NT$%d\n", it.Title, it.Quantity, it.Subtotal())
	}
	fmt.Fprintf(&b, "\n總金額: NT$%d\n", o.TotalAmount)

	d.enqueue("order", o.OrderID, fmt.Sprintf("新訂單 %s (NT$%d)", o.OrderID, o.TotalAmount), b.String())
}

func (d *NotificationDispatcher) RequestCreated(r *models.Request) {
	var b strings.Builder
	fmt.Fprintf(&b, "請求編號: %s\n", r.RequestID)
	if r.MemberID != "" {
		fmt.Fprintf(&b, "會員編號: %s\n", r.MemberID)
	}
	fmt.Fprintf(&b, "聯絡方式: %s\n", r.ContactInfo)
	if r.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", r.Email)
	}
	fmt.Fprintf(&b, "商品名稱: %s\n", r.ProductName)
	fmt.Fprintf(&b, "商品網址: %s\n", r.ProductURL)
	if r.Specs != "" {
		fmt.Fprintf(&b, "規格: %s\n", r.Specs)
	}
	fmt.Fprintf(&b, "數量: %d\n", r.Quantity)
	if r.Notes != "" {
		fmt.Fprintf(&b, "備註: %s\n", r.Notes)
	}

	d.enqueue("request", r.RequestID, fmt.Sprintf("新代採購請求 %s", r.ProductName), b.String())
}

func (d *NotificationDispatcher) enqueue(kind, id, subject, text string) {
	if !d.enabled() {
		log.Debug().Str("kind", kind).Str("id", id).Msg("Mail not configured, skipping notification")
		return
	}
	msg := &mailer.Message{From: d.from, To: d.to, Subject: subject, Text: text}
	select {
	case d.queue <- msg:
	default:
		log.Warn().Str("kind", kind).Str("id", id).Msg("Notification queue full, dropping email")
	}
}

// Start sends queued messages until ctx is canceled, then drains what is left.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	defer close(d.done)
	log.Info().Bool("enabled", d.enabled()).Msg("Starting notification dispatcher")

	for {
		select {
		case msg := <-d.queue:
			d.send(context.Background(), msg)
		case <-ctx.Done():
			for {
				select {
				case msg := <-d.queue:
					d.send(context.Background(), msg)
				default:
					log.Info().Msg("Notification dispatcher stopped")
					return
				}
			}
		}
	}
}

// Wait blocks until Start has returned.
func (d *NotificationDispatcher) Wait() {
	<-d.done
}

func (d *NotificationDispatcher) send(ctx context.Context, msg *mailer.Message) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	id, err := d.mailer.Send(ctx, msg)
	if err != nil {
		ev := log.Error().Err(err).Str("subject", msg.Subject)
		var perr *mailer.ProviderError
		if errors.As(err, &perr) {
			ev = ev.Int("provider_status", perr.StatusCode).Str("provider_body", perr.Body)
		}
		ev.Msg("Failed to send notification email")
		return
	}
	log.Info().Str("message_id", id).Str("subject", msg.Subject).Msg("Notification email sent")
}
