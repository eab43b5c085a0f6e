// internal/app/dispatcher.go
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"course_followup_service/internal/domain/notification"
	"course_followup_service/internal/domain/push"
	"course_followup_service/internal/domain/registration"
)

const defaultDispatchWorkers = 4

// OutcomePublisher receives every outcome once a dispatch settles.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome notification.Outcome) error
}

// DispatchOptions controls the idempotency behaviour of a dispatch.
type DispatchOptions struct {
	// Date is the scheduling-zone day the dispatch belongs to.
	Date string
	// Claim reserves (course, checkpoint, date) in the dispatch log before sending.
	Claim bool
}

// Dispatcher resolves recipients for a due pair and performs one multicast per pair.
type Dispatcher struct {
	registrations registration.Repository
	gateway       push.Gateway
	dispatchLog   notification.LogRepository
	publisher     OutcomePublisher
	deepLinkBase  string
	workers       int
	logger        *logrus.Entry
}

// NewDispatcher builds a Dispatcher. dispatchLog and publisher may be nil.
func NewDispatcher(
	regs registration.Repository,
	gateway push.Gateway,
	dispatchLog notification.LogRepository,
	publisher OutcomePublisher,
	deepLinkBase string,
	workers int,
	logger *logrus.Entry,
) *Dispatcher {
	if workers <= 0 {
		workers = defaultDispatchWorkers
	}
	return &Dispatcher{
		registrations: regs,
		gateway:       gateway,
		dispatchLog:   dispatchLog,
		publisher:     publisher,
		deepLinkBase:  deepLinkBase,
		workers:       workers,
		logger:        logger.WithField("component", "dispatcher"),
	}
}

// Configured reports whether a push gateway is wired.
func (d *Dispatcher) Configured() bool {
	return d.gateway != nil
}

// DispatchAll processes pairs on a bounded worker pool. Outcomes keep the order of pairs.
// Pairs not started before ctx is done are reported as failed with the context error.
func (d *Dispatcher) DispatchAll(ctx context.Context, pairs []notification.DuePair, opts DispatchOptions) []notification.Outcome {
	outcomes := make([]notification.Outcome, len(pairs))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			outcomes[i] = d.settle(ctx, pair, cancelledOutcome(pair, err))
			continue
		}
		g.Go(func() error {
			outcomes[i] = d.Dispatch(ctx, pair, opts)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// Dispatch sends the checkpoint message for one pair. Errors are folded into the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, pair notification.DuePair, opts DispatchOptions) notification.Outcome {
	log := d.logger.WithFields(logrus.Fields{
		"course_id":    pair.CourseID,
		"course_title": pair.CourseTitle,
		"checkpoint":   pair.Checkpoint,
	})
	if err := ctx.Err(); err != nil {
		return d.settle(ctx, pair, cancelledOutcome(pair, err))
	}

	entry := notification.LogEntry{CourseID: pair.CourseID, Checkpoint: pair.Checkpoint, Date: opts.Date}
	claimed := false
	if opts.Claim && d.dispatchLog != nil {
		ok, err := d.dispatchLog.Claim(ctx, entry)
		if err != nil {
			log.WithError(err).Error("Failed to claim dispatch log entry")
			return d.settle(ctx, pair, failedOutcome(pair, fmt.Errorf("dispatch log: %w", err)))
		}
		if !ok {
			log.WithField("date", opts.Date).Info("Pair already dispatched for this date, skipping")
			o := notification.NewOutcome(pair, notification.StatusSkipped)
			o.Reason = notification.ReasonAlreadyDispatched
			return d.settle(ctx, pair, o)
		}
		claimed = true
	}

	recipients, err := d.registrations.ListTraineeIDs(ctx, pair.CourseID)
	if err != nil {
		log.WithError(err).Error("Failed to resolve recipients")
		d.release(ctx, claimed, entry, log)
		return d.settle(ctx, pair, failedOutcome(pair, fmt.Errorf("resolve recipients: %w", err)))
	}
	if len(recipients) == 0 {
		log.Info("No registered users, skipping dispatch")
		d.release(ctx, claimed, entry, log)
		o := notification.NewOutcome(pair, notification.StatusSkipped)
		o.Reason = notification.ReasonNoRecipients
		return d.settle(ctx, pair, o)
	}

	msg := notification.BuildMessage(notification.MessageParams{
		CourseTitle:  pair.CourseTitle,
		CourseID:     pair.CourseID,
		Checkpoint:   pair.Checkpoint,
		DeepLinkBase: d.deepLinkBase,
	})
	if err := d.gateway.Multicast(ctx, recipients, msg); err != nil {
		log.WithError(err).WithField("recipients", len(recipients)).Error("Multicast failed")
		d.release(ctx, claimed, entry, log)
		o := failedOutcome(pair, err)
		o.SentTo = len(recipients)
		return d.settle(ctx, pair, o)
	}

	if claimed {
		entry.Status = notification.StatusSent
		entry.Recipients = len(recipients)
		if err := d.dispatchLog.Complete(context.WithoutCancel(ctx), entry); err != nil {
			log.WithError(err).Warn("Notification sent but dispatch log could not be finalized")
		}
	}
	log.WithField("recipients", len(recipients)).Info("Notification sent")
	o := notification.NewOutcome(pair, notification.StatusSent)
	o.SentTo = len(recipients)
	return d.settle(ctx, pair, o)
}

func (d *Dispatcher) release(ctx context.Context, claimed bool, entry notification.LogEntry, log *logrus.Entry) {
	if !claimed {
		return
	}
	if err := d.dispatchLog.Release(context.WithoutCancel(ctx), entry); err != nil {
		log.WithError(err).Warn("Failed to release dispatch log claim")
	}
}

func (d *Dispatcher) settle(ctx context.Context, pair notification.DuePair, o notification.Outcome) notification.Outcome {
	if d.publisher == nil {
		return o
	}
	if err := d.publisher.PublishOutcome(context.WithoutCancel(ctx), o); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"course_id":  pair.CourseID,
			"checkpoint": pair.Checkpoint,
		}).Warn("Failed to publish notification outcome")
	}
	return o
}

func failedOutcome(pair notification.DuePair, err error) notification.Outcome {
	o := notification.NewOutcome(pair, notification.StatusFailed)
	o.Reason = err.Error()
	return o
}

func cancelledOutcome(pair notification.DuePair, err error) notification.Outcome {
	return failedOutcome(pair, fmt.Errorf("not dispatched: %w", err))
}
