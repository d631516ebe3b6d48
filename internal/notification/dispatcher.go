package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kalungi/estate-management/internal/core/events"
)

// EmailJob is one outbound message handed to the worker pool.
type EmailJob struct {
	UserID  int64
	Subject string
	Body    string
}

// EmailSender delivers a single message. Implementations must be safe for
// concurrent use.
type EmailSender interface {
	Send(ctx context.Context, recipient string, subject, body string) error
}

// UserEmailReader resolves a recipient address from a user id.
type UserEmailReader interface {
	GetEmailByID(userID int64) (string, error)
}

type emailWorker struct {
	id         int
	workerPool chan chan EmailJob
	jobChannel chan EmailJob
	logger     *slog.Logger
}

func newEmailWorker(id int, workerPool chan chan EmailJob, logger *slog.Logger) *emailWorker {
	return &emailWorker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan EmailJob),
		logger:     logger,
	}
}

func (w *emailWorker) start(ctx context.Context, wg *sync.WaitGroup, processFunc func(EmailJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.workerPool <- w.jobChannel

			select {
			case job := <-w.jobChannel:
				w.logger.Debug("worker processing email job", "worker_id", w.id, "user_id", job.UserID)
				processFunc(job)
			case <-ctx.Done():
				w.logger.Debug("email worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

// Dispatcher turns payment events into email jobs and drains them through a
// bounded worker pool. A full queue drops the email; the in-app notification
// written inside the settlement transaction is the durable record.
type Dispatcher struct {
	sender EmailSender
	users  UserEmailReader
	logger *slog.Logger

	jobQueue   chan EmailJob
	workerPool chan chan EmailJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type DispatcherConfig struct {
	MaxWorkers   int
	JobQueueSize int
}

func NewDispatcher(config DispatcherConfig, sender EmailSender, users UserEmailReader, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 5
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	d := &Dispatcher{
		sender: sender,
		users:  users,
		logger: logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan EmailJob, jobQueueSize),
		workerPool: make(chan chan EmailJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	d.startWorkerPool()

	return d
}

func (d *Dispatcher) startWorkerPool() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := newEmailWorker(i, d.workerPool, d.logger)
			worker.start(d.ctx, &d.wg, d.processEmailJob)
		}

		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	d.wg.Add(1)
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.logger.Info("notification dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.logger.Info("notification dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notification dispatcher shutting down")
			return
		}
	}
}

func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down notification dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("notification dispatcher shutdown complete")
}

// RegisterHandlers subscribes the dispatcher to the payment lifecycle.
func (d *Dispatcher) RegisterHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypePaymentConfirmed, d.handlePaymentConfirmed)
	bus.Subscribe(events.EventTypePaymentRejected, d.handlePaymentRejected)
}

func (d *Dispatcher) handlePaymentConfirmed(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PaymentConfirmedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	d.enqueue(EmailJob{
		UserID:  e.UserID,
		Subject: "Your reservation is confirmed",
		Body: fmt.Sprintf("Payment of %d %s for reservation %d was received via %s. Your reservation is now confirmed.",
			e.Amount, e.Currency, e.ReservationID, e.Gateway),
	})
	return nil
}

func (d *Dispatcher) handlePaymentRejected(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PaymentRejectedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	body := fmt.Sprintf("Your payment for reservation %d was not completed.", e.ReservationID)
	if e.FailureReason != "" {
		body = fmt.Sprintf("%s Reason: %s.", body, e.FailureReason)
	}

	d.enqueue(EmailJob{
		UserID:  e.UserID,
		Subject: "Your reservation payment failed",
		Body:    body,
	})
	return nil
}

func (d *Dispatcher) enqueue(job EmailJob) {
	select {
	case d.jobQueue <- job:
		d.logger.Debug("email job queued", "user_id", job.UserID, "queue_length", len(d.jobQueue))
	default:
		d.logger.Warn("email queue full, dropping message",
			"user_id", job.UserID,
			"queue_capacity", cap(d.jobQueue))
	}
}

func (d *Dispatcher) processEmailJob(job EmailJob) {
	recipient, err := d.users.GetEmailByID(job.UserID)
	if err != nil {
		d.logger.Error("could not resolve recipient, dropping email",
			"user_id", job.UserID,
			"error", err)
		return
	}

	if err := d.sender.Send(d.ctx, recipient, job.Subject, job.Body); err != nil {
		d.logger.Error("email delivery failed",
			"user_id", job.UserID,
			"error", err)
		return
	}

	d.logger.Info("email delivered", "user_id", job.UserID, "subject", job.Subject)
}

// LogEmailSender writes messages to the log instead of a mail provider.
// Deployments without SMTP credentials run with this sender.
type LogEmailSender struct {
	Logger *slog.Logger
}

func (s *LogEmailSender) Send(_ context.Context, recipient, subject, body string) error {
	s.Logger.Info("email (log sender)",
		"recipient", recipient,
		"subject", subject,
		"body", body)
	return nil
}
