package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Message is a rendered e-mail.
type Message struct {
	To      string
	Subject string
	HTML    string
}

var statusSentences = map[string]string{
	"pending":          "Your order is pending.",
	"confirmed":        "Your order is being processed.",
	"processing":       "Your order is being processed.",
	"shipped":          "Your order has been shipped!",
	"out-for-delivery": "Your order is out for delivery!",
	"delivered":        "Your order has been delivered!",
	"cancelled":        "Your order has been cancelled.",
}

// StatusSentence returns the customer-facing sentence for an order status.
func StatusSentence(status string) string {
	if s, ok := statusSentences[status]; ok {
		return s
	}
	return "Order status updated."
}

// ReturnGuidance returns the follow-up text for a return decision.
func ReturnGuidance(status string) string {
	if status == "approved" {
		return "Your return request has been approved. Please follow the instructions for returning your product."
	}
	return "Your return request has been rejected. If you have questions, please contact support."
}

// statusTitle turns a status value into a subject-line label,
// e.g. "out-for-delivery" becomes "Out For Delivery".
func statusTitle(status string) string {
	// a Caser keeps state, so one is made per call
	return cases.Title(language.English).String(strings.ReplaceAll(status, "-", " "))
}

const layout = `{{define "layout"}}<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 24px; background: #f9f9f9;">
<h2 style="color: #1a1a1a;">Hi {{.Event.Recipient.Name}},</h2>
{{template "body" .}}
<p>Thank you for shopping with {{.Store}}!</p>
<hr style="margin: 32px 0;" />
<p style="font-size: 13px; color: #888;">This is an automated email. Please do not reply.</p>
</div>{{end}}`

var bodies = map[string]string{
	"created": `{{define "body"}}<p>We have received your order <b>#{{.Event.OrderID}}</b> for a total of <b>{{printf "%.2f" .Event.Total}}</b>.</p>
<p>You'll receive another email when your order is confirmed.</p>{{end}}`,
	"confirmed": `{{define "body"}}<p>We're excited to let you know that your order <b>#{{.Event.OrderID}}</b> has been <b>confirmed</b> and is being prepared for shipment.</p>
<ul><li>You'll receive another email when your order ships.</li><li>Track your order status anytime in your account.</li></ul>{{end}}`,
	"status": `{{define "body"}}<p>Your order <b>#{{.Event.OrderID}}</b> status has been updated to <b>{{.StatusTitle}}</b>.</p>
<p>{{.Sentence}}</p>{{end}}`,
	"return_requested": `{{define "body"}}<p>We have received your return request for:</p>
<ul><li><b>Order ID:</b> {{.Event.OrderID}}</li><li><b>Product ID:</b> {{.Event.ProductID}}</li><li><b>Reason:</b> {{.Event.Reason}}</li></ul>
<p>Our team will review your request and update you soon.</p>{{end}}`,
	"return_decided": `{{define "body"}}<p>Your return request for:</p>
<ul><li><b>Order ID:</b> {{.Event.OrderID}}</li><li><b>Product ID:</b> {{.Event.ProductID}}</li></ul>
<p><b>Status:</b> {{.StatusTitle}}</p>
<p>{{.Sentence}}</p>{{end}}`,
}

type view struct {
	Event       Event
	Store       string
	StatusTitle string
	Sentence    string
}

// Renderer turns events into e-mail messages.
type Renderer struct {
	store     string
	templates map[string]*template.Template
}

// NewRenderer parses the e-mail templates once.
func NewRenderer(store string) (*Renderer, error) {
	r := &Renderer{store: store, templates: make(map[string]*template.Template, len(bodies))}
	for name, body := range bodies {
		t, err := template.New(name).Parse(layout)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layout: %w", err)
		}
		if _, err := t.Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render builds the message for event.
func (r *Renderer) Render(event Event) (Message, error) {
	v := view{Event: event, Store: r.store, StatusTitle: statusTitle(event.Status)}

	var name, subject string
	switch event.Type {
	case EventOrderCreated:
		name = "created"
		subject = fmt.Sprintf("Order #%s Placed", event.OrderID)
	case EventOrderStatusChanged:
		if event.Status == "confirmed" {
			name = "confirmed"
			subject = fmt.Sprintf("Order #%s Confirmed!", event.OrderID)
		} else {
			name = "status"
			subject = fmt.Sprintf("Order #%s Status Update: %s", event.OrderID, v.StatusTitle)
		}
		v.Sentence = StatusSentence(event.Status)
	case EventReturnRequested:
		name = "return_requested"
		subject = fmt.Sprintf("Return Request Placed for Order #%s", event.OrderID)
	case EventReturnDecided:
		name = "return_decided"
		v.Sentence = ReturnGuidance(event.Status)
		subject = fmt.Sprintf("Return Request %s for Order #%s", v.StatusTitle, event.OrderID)
	default:
		return Message{}, fmt.Errorf("no e-mail template for event type %q", event.Type)
	}

	var buf bytes.Buffer
	if err := r.templates[name].ExecuteTemplate(&buf, "layout", v); err != nil {
		return Message{}, fmt.Errorf("failed to render %s e-mail: %w", event.Type, err)
	}
	return Message{To: event.Recipient.Email, Subject: subject, HTML: buf.String()}, nil
}
