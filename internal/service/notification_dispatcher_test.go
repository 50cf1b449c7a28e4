package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GTDGit/groupbuy_api/internal/config"
	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/pkg/mailer"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []*mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg *mailer.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg_1", nil
}

func runDispatcher(t *testing.T, d *NotificationDispatcher, enqueue func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go d.Start(ctx)
	enqueue()
	cancel()

	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcherSendsOrderAndRequestMail(t *testing.T) {
	m := &fakeMailer{}
	d := NewNotificationDispatcher(m, config.MailConfig{From: "shop@example.com", To: []string{"staff@example.com"}})

	order := &models.Order{OrderID: "ord_1", MemberID: "PPH001", TotalAmount: 110,
		Items: []models.OrderItem{{Title: "A", Price: 100, ServiceFee: 10, Quantity: 1}}}
	runDispatcher(t, d, func() {
		d.OrderCreated(order)
		d.RequestCreated(&models.Request{RequestID: "req_1", ProductName: "Cream", Quantity: 1})
	})

	if len(m.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(m.sent))
	}
	if !strings.Contains(m.sent[0].Subject, "ord_1") || !strings.Contains(m.sent[0].Text, "PPH001") {
		t.Fatalf("order mail = %+v", m.sent[0])
	}
	if !strings.Contains(m.sent[1].Subject, "Cream") {
		t.Fatalf("request mail subject = %q", m.sent[1].Subject)
	}
}

func TestDispatcherSkipsWhenNotConfigured(t *testing.T) {
	m := &fakeMailer{}
	d := NewNotificationDispatcher(m, config.MailConfig{})

	runDispatcher(t, d, func() { d.OrderCreated(&models.Order{OrderID: "ord_1"}) })

	if len(m.sent) != 0 {
		t.Fatalf("sent %d messages without configuration", len(m.sent))
	}
}

func TestDispatcherSwallowsProviderErrors(t *testing.T) {
	m := &fakeMailer{err: &mailer.ProviderError{StatusCode: 422, Body: `{"message":"bad from"}`}}
	d := NewNotificationDispatcher(m, config.MailConfig{From: "a@example.com", To: []string{"b@example.com"}})

	runDispatcher(t, d, func() { d.RequestCreated(&models.Request{RequestID: "req_1"}) })
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	d := NewNotificationDispatcher(&fakeMailer{}, config.MailConfig{From: "a@example.com", To: []string{"b@example.com"}, QueueSize: 1})

	d.OrderCreated(&models.Order{OrderID: "ord_1"})
	d.OrderCreated(&models.Order{OrderID: "ord_2"})

	if n := len(d.queue); n != 1 {
		t.Fatalf("queue len = %d, want 1", n)
	}
}
