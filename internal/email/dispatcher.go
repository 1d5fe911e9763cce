package email

import (
	"context"
	"fmt"
	"log/slog"

	"paperfeed/internal/config"
	"paperfeed/internal/core"
	"paperfeed/internal/logger"
)

// SubscriberLister returns the users who opted in to the weekly email.
type SubscriberLister interface {
	ListSubscribers(ctx context.Context) ([]core.Subscriber, error)
}

// DigestGenerator produces the weekly digest for one user.
type DigestGenerator interface {
	Generate(ctx context.Context, userID string) (*core.Digest, string, error)
}

// Dispatcher generates and sends the weekly digest email to every
// subscriber. A failure for one subscriber never blocks the rest.
type Dispatcher struct {
	subscribers SubscriberLister
	digests     DigestGenerator
	sender      Sender
	template    *Template
	log         *slog.Logger
}

// NewDispatcher creates a weekly email dispatcher. The subject line comes
// from the email config when set, otherwise the template default.
func NewDispatcher(cfg config.Email, subscribers SubscriberLister, digests DigestGenerator, sender Sender) *Dispatcher {
	tmpl := DefaultTemplate()
	if cfg.Subject != "" {
		tmpl.Subject = cfg.Subject
	}
	return &Dispatcher{
		subscribers: subscribers,
		digests:     digests,
		sender:      sender,
		template:    tmpl,
		log:         logger.Get(),
	}
}

// DispatchWeekly sends the current week's digest to every subscriber and
// returns how many emails were sent and how many subscribers failed.
func (d *Dispatcher) DispatchWeekly(ctx context.Context) (sent, failed int, err error) {
	subs, err := d.subscribers.ListSubscribers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list subscribers: %w", err)
	}
	if len(subs) == 0 {
		d.log.Info("no digest subscribers, nothing to send")
		return 0, 0, nil
	}

	for _, sub := range subs {
		if err := d.dispatchOne(ctx, sub); err != nil {
			failed++
			d.log.Error("digest email failed", "user_id", sub.UserID, "error", err.Error())
			continue
		}
		sent++
	}

	d.log.Info("weekly digest dispatch complete", "sent", sent, "failed", failed)
	return sent, failed, nil
}

// DispatchUser sends the weekly digest to a single subscriber.
func (d *Dispatcher) DispatchUser(ctx context.Context, userID string) error {
	subs, err := d.subscribers.ListSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscribers: %w", err)
	}
	for _, sub := range subs {
		if sub.UserID == userID {
			return d.dispatchOne(ctx, sub)
		}
	}
	return fmt.Errorf("user %s is not subscribed to the digest email", userID)
}

func (d *Dispatcher) dispatchOne(ctx context.Context, sub core.Subscriber) error {
	digest, traceID, err := d.digests.Generate(ctx, sub.UserID)
	if err != nil {
		return fmt.Errorf("generate digest (trace %s): %w", traceID, err)
	}

	html, err := RenderDigest(digest, d.template)
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}

	subject, err := GenerateSubject(d.template, digest.WeekStartDate.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("render subject: %w", err)
	}

	return d.sender.Send(ctx, Message{To: sub.Email, Subject: subject, HTML: html})
}
