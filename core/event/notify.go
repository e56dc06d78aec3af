package event

import (
	"bytes"
	"context"
	"net/mail"
	"sync"
	"text/template"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/user"
)

var ErrBatchNotFound = errors.New("batch not found")

// NoticeData is the substitution context available to notice subject and
// body templates.
type NoticeData struct {
	Name      string
	StudentID string
	Email     string
	EventName string
	Venue     string
	StartsAt  string
}

// Outcome records the delivery result for a single recipient.
type Outcome struct {
	Email string `json:"email"`
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

// BatchStatus is a point-in-time snapshot of a notification batch.
type BatchStatus struct {
	ID        uuid.UUID `json:"id"`
	Total     int       `json:"total"`
	Delivered int       `json:"delivered"`
	Failed    int       `json:"failed"`
	Done      bool      `json:"done"`
	Outcomes  []Outcome `json:"outcomes"`
}

type batch struct {
	mu        sync.Mutex
	id        uuid.UUID
	total     int
	delivered int
	failed    int
	pending   int
	outcomes  []Outcome
}

func (b *batch) record(email string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := Outcome{Email: email, Sent: err == nil}
	if err != nil {
		out.Error = err.Error()
		b.failed++
	} else {
		b.delivered++
	}
	b.outcomes = append(b.outcomes, out)
	if b.pending > 0 {
		b.pending--
	}
}

func (b *batch) status() BatchStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := BatchStatus{
		ID:        b.id,
		Total:     b.total,
		Delivered: b.delivered,
		Failed:    b.failed,
		Done:      b.pending == 0,
		Outcomes:  make([]Outcome, len(b.outcomes)),
	}
	copy(s.Outcomes, b.outcomes)
	return s
}

type job struct {
	batch *batch
	msg   *core.EmailMessage
}

// Dispatcher delivers notification emails through a bounded worker pool so
// that enqueueing a batch never blocks on SMTP round trips. Delivery order
// within a batch is not guaranteed.
type Dispatcher struct {
	mailSvc core.EmailService
	log     core.Logger

	queue chan job
	wg    sync.WaitGroup

	mu      sync.RWMutex
	batches map[uuid.UUID]*batch
}

func NewDispatcher(mailSvc core.EmailService, log core.Logger) *Dispatcher {
	d := &Dispatcher{
		mailSvc: mailSvc,
		log:     log,
		queue:   make(chan job, core.Conf.Notify.QueueSize),
		batches: make(map[uuid.UUID]*batch),
	}
	for i := 0; i < core.Conf.Notify.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		err := d.mailSvc.SendMessage(j.msg)
		if err != nil {
			d.log.Error("notice delivery failed", err, "to", j.msg.To[0].Address)
		}
		j.batch.record(j.msg.To[0].Address, err)
	}
}

// Close drains the queue and waits for in-flight deliveries to finish.
func (d *Dispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}

func (d *Dispatcher) newBatch() *batch {
	b := &batch{id: uuid.New()}
	d.mu.Lock()
	d.batches[b.id] = b
	d.mu.Unlock()
	return b
}

// Status reports the current state of a previously queued batch.
func (d *Dispatcher) Status(id uuid.UUID) (BatchStatus, error) {
	d.mu.RLock()
	b, ok := d.batches[id]
	d.mu.RUnlock()
	if !ok {
		return BatchStatus{}, ErrBatchNotFound
	}
	return b.status(), nil
}

// BatchStatus reports the state of a previously queued notification batch.
func (svc *Service) BatchStatus(id uuid.UUID) (BatchStatus, error) {
	return svc.dispatcher.Status(id)
}

// NotifyAttendees queues one email per registrant of eventID and returns
// immediately with the batch ID and the number of messages queued. Subject
// and body are text templates evaluated against NoticeData per recipient;
// recipients with malformed addresses are recorded as failures without
// aborting the batch.
func (svc *Service) NotifyAttendees(ctx context.Context, eventID int, subject, body string, role user.Role) (BatchStatus, error) {
	if !user.Can(role, user.ActionNotifyAttendees) {
		return BatchStatus{}, ErrPermissionDenied
	}

	evt, err := svc.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return BatchStatus{}, err
	}
	registrants, err := svc.repo.QueryRegistrants(ctx, eventID)
	if err != nil {
		return BatchStatus{}, errors.Wrap(err, "querying registrants")
	}

	subjTpl, err := template.New("subject").Parse(subject)
	if err != nil {
		return BatchStatus{}, core.NewValidationError(err, core.FieldError{Field: "subject", Error: "invalid template"})
	}
	bodyTpl, err := template.New("body").Parse(body)
	if err != nil {
		return BatchStatus{}, core.NewValidationError(err, core.FieldError{Field: "body", Error: "invalid template"})
	}

	b := svc.dispatcher.newBatch()
	b.mu.Lock()
	b.total = len(registrants)
	b.pending = len(registrants)
	b.mu.Unlock()

	fail := func(email string, err error) {
		svc.log.Error("skipping notice recipient", err, "to", email)
		b.record(email, err)
	}

	for _, r := range registrants {
		addr, err := mail.ParseAddress(r.Email)
		if err != nil {
			fail(r.Email, errors.Wrap(err, "invalid address"))
			continue
		}
		addr.Name = r.Name

		data := NoticeData{
			Name:      r.Name,
			StudentID: r.StudentID,
			Email:     r.Email,
			EventName: evt.Name,
			Venue:     evt.Venue,
			StartsAt:  evt.StartsAt.Format("Mon, 02 Jan 2006 15:04"),
		}
		var subj, msgBody bytes.Buffer
		if err = subjTpl.Execute(&subj, data); err != nil {
			fail(r.Email, errors.Wrap(err, "rendering subject"))
			continue
		}
		if err = bodyTpl.Execute(&msgBody, data); err != nil {
			fail(r.Email, errors.Wrap(err, "rendering body"))
			continue
		}

		msg := &core.EmailMessage{
			To:           []mail.Address{*addr},
			Subject:      subj.String(),
			TemplateName: "event-notice",
			TemplateData: map[string]interface{}{
				"Body":  msgBody.String(),
				"Event": evt.Name,
			},
		}
		svc.dispatcher.queue <- job{batch: b, msg: msg}
	}
	return b.status(), nil
}
