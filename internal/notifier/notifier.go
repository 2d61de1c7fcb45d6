// Package notifier turns a batch of new ads into a message and delivers it.
package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"adwatch/internal/model"
)

// Sender delivers a composed message over some transport.
type Sender interface {
	Send(ctx context.Context, subject, htmlBody string) error
}

// NotifyError reports a failed delivery.
type NotifyError struct {
	Count int
	Err   error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify %d ads: %v", e.Count, e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// Notifier composes new-ad summaries and hands them to a Sender.
type Notifier struct {
	sender        Sender
	adBaseURL     string
	subjectSuffix string
	policy        *bluemonday.Policy
}

// New creates a Notifier. subjectSuffix is appended to the subject when non-empty.
func New(sender Sender, adBaseURL, subjectSuffix string) *Notifier {
	return &Notifier{
		sender:        sender,
		adBaseURL:     adBaseURL,
		subjectSuffix: subjectSuffix,
		policy:        bluemonday.StrictPolicy(),
	}
}

// Notify sends one message summarizing ads. An empty batch sends nothing.
func (n *Notifier) Notify(ctx context.Context, ads []model.Ad) error {
	if len(ads) == 0 {
		return nil
	}
	subject, body := n.Compose(ads)
	if err := n.sender.Send(ctx, subject, body); err != nil {
		return &NotifyError{Count: len(ads), Err: err}
	}
	return nil
}

// Compose builds the subject line and HTML body for ads.
func (n *Notifier) Compose(ads []model.Ad) (subject, body string) {
	subject = "New ad"
	if len(ads) > 1 {
		subject = "New ads"
	}
	if n.subjectSuffix != "" {
		subject += " " + n.subjectSuffix
	}

	var b strings.Builder
	for _, ad := range ads {
		fmt.Fprintf(&b, "Title: %s<br />", n.policy.Sanitize(ad.Title))
		fmt.Fprintf(&b, "Location: %s<br />", n.policy.Sanitize(ad.Location))
		fmt.Fprintf(&b, "%s<br />", n.policy.Sanitize(ad.URL(n.adBaseURL)))
		fmt.Fprintf(&b, "Description: %s<br />", n.policy.Sanitize(ad.Description))
		b.WriteString("<br />")
	}
	return subject, b.String()
}
