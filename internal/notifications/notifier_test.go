package notifications

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (s *recordingSink) Deliver(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if s.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	args := m.Called(ctx, routingKey, body)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func TestAsyncNotifier_DeliversAllOnClose(t *testing.T) {
	sink := &recordingSink{}
	n := NewAsyncNotifier(sink, AsyncOptions{Workers: 3, QueueSize: 50, Timeout: time.Second})

	for i := 0; i < 20; i++ {
		n.Notify(context.Background(), NewEvent(EventOrderCreated, Recipient{Email: "a@example.com"}, time.Now()))
	}
	n.Close()

	assert.Equal(t, 20, sink.count())

	// events after Close are dropped, not panicking on a closed channel
	n.Notify(context.Background(), NewEvent(EventOrderCreated, Recipient{}, time.Now()))
	assert.Equal(t, 20, sink.count())
}

func TestAsyncNotifier_FailuresAreSwallowed(t *testing.T) {
	sink := &recordingSink{fail: true}
	n := NewAsyncNotifier(sink, AsyncOptions{Workers: 1, QueueSize: 4, Timeout: time.Second})

	n.Notify(context.Background(), NewEvent(EventReturnDecided, Recipient{Email: "a@example.com"}, time.Now()))
	n.Close()

	assert.Equal(t, 1, sink.count())
}

func TestAsyncNotifier_NotifyDoesNotBlockWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	blocking := SinkFunc(func(ctx context.Context, _ Event) error {
		<-release
		return nil
	})
	n := NewAsyncNotifier(blocking, AsyncOptions{Workers: 1, QueueSize: 1, Timeout: time.Second})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			n.Notify(context.Background(), NewEvent(EventOrderCreated, Recipient{}, time.Now()))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	close(release)
	n.Close()
}

func TestBrokerSink_PublishesWithRoutingKey(t *testing.T) {
	pub := new(MockPublisher)
	event := NewEvent(EventOrderStatusChanged, Recipient{Email: "a@example.com"}, time.Now())
	event.OrderID = "o1"
	event.Status = "shipped"

	pub.On("Publish", mock.Anything, "order.status_changed", mock.MatchedBy(func(body []byte) bool {
		decoded, err := DecodeEvent(body)
		return err == nil && decoded.OrderID == "o1" && decoded.Status == "shipped"
	})).Return(nil).Once()

	require.NoError(t, NewBrokerSink(pub).Deliver(context.Background(), event))
	pub.AssertExpectations(t)
}

func TestBrokerSink_WrapsDependencyError(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("channel closed"))

	err := NewBrokerSink(pub).Deliver(context.Background(), NewEvent(EventOrderCreated, Recipient{}, time.Now()))
	assert.ErrorIs(t, err, ErrDependency)
}

func TestMailSink_RendersAndSends(t *testing.T) {
	renderer, err := NewRenderer("Storefront")
	require.NoError(t, err)
	mailer := new(MockMailer)

	event := NewEvent(EventReturnDecided, Recipient{Name: "Asha", Email: "asha@example.com"}, time.Now())
	event.OrderID = "o1"
	event.ProductID = "p1"
	event.Status = "approved"

	mailer.On("Send", mock.Anything, mock.MatchedBy(func(msg Message) bool {
		return msg.To == "asha@example.com" &&
			msg.Subject == "Return Request Approved for Order #o1" &&
			assert.Contains(t, msg.HTML, "Please follow the instructions for returning your product.")
	})).Return(nil).Once()

	require.NoError(t, NewMailSink(mailer, renderer).Deliver(context.Background(), event))
	mailer.AssertExpectations(t)
}

func TestMailSink_MissingRecipient(t *testing.T) {
	renderer, err := NewRenderer("Storefront")
	require.NoError(t, err)
	mailer := new(MockMailer)

	err = NewMailSink(mailer, renderer).Deliver(context.Background(), NewEvent(EventOrderCreated, Recipient{}, time.Now()))
	assert.ErrorIs(t, err, ErrDependency)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRenderer_StatusEmails(t *testing.T) {
	renderer, err := NewRenderer("Storefront")
	require.NoError(t, err)

	tests := []struct {
		status   string
		subject  string
		sentence string
	}{
		{"shipped", "Order #o1 Status Update: Shipped", "Your order has been shipped!"},
		{"out-for-delivery", "Order #o1 Status Update: Out For Delivery", "Your order is out for delivery!"},
		{"cancelled", "Order #o1 Status Update: Cancelled", "Your order has been cancelled."},
		{"confirmed", "Order #o1 Confirmed!", "has been <b>confirmed</b>"},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			event := NewEvent(EventOrderStatusChanged, Recipient{Name: "Asha", Email: "asha@example.com"}, time.Now())
			event.OrderID = "o1"
			event.Status = tt.status

			msg, err := renderer.Render(event)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, msg.Subject)
			assert.Contains(t, msg.HTML, tt.sentence)
			assert.Contains(t, msg.HTML, "Hi Asha,")
		})
	}
}

func TestStatusSentence_UnknownStatus(t *testing.T) {
	assert.Equal(t, "Your order is being processed.", StatusSentence("processing"))
	assert.Equal(t, "Order status updated.", StatusSentence("lost"))
}

// startSMTPServer accepts mail on a local port and hands every DATA payload
// to the returned channel.
func startSMTPServer(t *testing.T) (int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	messages := make(chan string, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSMTP(conn, messages)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, messages
}

func serveSMTP(conn net.Conn, messages chan<- string) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			_ = tp.PrintfLine("250-localhost")
			_ = tp.PrintfLine("250 8BITMIME")
		case "DATA":
			_ = tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			messages <- string(data)
			_ = tp.PrintfLine("250 OK queued")
		case "QUIT":
			_ = tp.PrintfLine("221 Bye")
			return
		default:
			_ = tp.PrintfLine("250 OK")
		}
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	port, messages := startSMTPServer(t)
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, From: "shop@example.com", Timeout: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.Send(ctx, Message{To: "asha@example.com", Subject: "Shipped ✓", HTML: "<p>Your order has been shipped!</p>"})
	require.NoError(t, err)

	select {
	case data := <-messages:
		assert.Contains(t, data, "Date: ")
		assert.Contains(t, data, "Message-ID: ")
		assert.Contains(t, data, "asha@example.com")
		assert.Contains(t, data, "Subject: =?UTF-8?")
		assert.Contains(t, data, "text/html")
		assert.Contains(t, data, "Your order has been shipped!")
	case <-time.After(5 * time.Second):
		t.Fatal("no message reached the server")
	}
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	port, messages := startSMTPServer(t)
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, From: "shop@example.com"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Send(ctx, Message{To: "asha@example.com", Subject: "hi", HTML: "<p>hi</p>"})
	assert.Error(t, err)
	assert.Empty(t, messages)
}

func TestSMTPMailer_RejectsInvalidRecipient(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "shop@example.com"})
	err := m.Send(context.Background(), Message{To: "not an address", Subject: "hi", HTML: "<p>hi</p>"})
	assert.ErrorContains(t, err, "invalid recipient")
}
