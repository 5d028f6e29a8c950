package lfm

import (
	"context"
	"errors"
	"sync/atomic"
)

var (
	// ErrUnconfirmed is returned when a delete is dispatched without confirmation.
	ErrUnconfirmed = errors.New("lfm: delete requires confirmation")
	// ErrBusy is returned when a mutation is dispatched while another is in flight.
	ErrBusy = errors.New("lfm: mutation in progress")
)

// ToastKind classifies a notification.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is a user-visible notification.
type Toast struct {
	Kind    ToastKind
	Message string
}

// Notifier delivers toasts to the user.
type Notifier interface {
	Notify(t Toast)
}

// ServerError is implemented by errors carrying a backend-provided message.
type ServerError interface {
	ServerMessage() string
}

// FailureMessage returns the server message carried by err, or generic.
func FailureMessage(err error, generic string) string {
	var se ServerError
	if errors.As(err, &se) {
		if msg := se.ServerMessage(); msg != "" {
			return msg
		}
	}
	return generic
}

// Messages are the localized toast texts a Dispatcher shows.
type Messages struct {
	Created string
	Updated string
	Deleted string
	Failed  string
}

// Op is a mutation kind.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
)

// Result describes a settled mutation.
type Result struct {
	// ResetForm is true after a successful create: the caller clears its inputs.
	ResetForm bool
	// ReloadErr is the error of the post-mutation reload, if any.
	ReloadErr error
}

// Reloader is satisfied by any Fetcher.
type Reloader interface {
	reload(ctx context.Context) error
}

func (f *Fetcher[T]) reload(ctx context.Context) error {
	_, err := f.Load(ctx)
	return err
}

// Dispatcher runs create/update/delete calls, toasts the outcome and
// reloads the bound fetcher after every success.
type Dispatcher struct {
	fetcher Reloader
	notify  Notifier
	msgs    Messages
	busy    atomic.Bool
}

// NewDispatcher binds a dispatcher to fetcher (may be nil) and n.
func NewDispatcher(fetcher Reloader, n Notifier, msgs Messages) *Dispatcher {
	return &Dispatcher{fetcher: fetcher, notify: n, msgs: msgs}
}

// Busy reports whether a mutation is in flight.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// Create dispatches a create call.
func (d *Dispatcher) Create(ctx context.Context, call func(context.Context) error) (Result, error) {
	return d.run(ctx, OpCreate, call)
}

// Update dispatches an update call.
func (d *Dispatcher) Update(ctx context.Context, call func(context.Context) error) (Result, error) {
	return d.run(ctx, OpUpdate, call)
}

// Delete dispatches a delete call once the user confirmed it. There is no undo.
func (d *Dispatcher) Delete(ctx context.Context, confirmed bool, call func(context.Context) error) (Result, error) {
	if !confirmed {
		return Result{}, ErrUnconfirmed
	}
	return d.run(ctx, OpDelete, call)
}

func (d *Dispatcher) run(ctx context.Context, op Op, call func(context.Context) error) (Result, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	err := call(ctx)
	d.busy.Store(false)

	if err != nil {
		d.toast(ToastError, FailureMessage(err, d.msgs.Failed))
		return Result{}, err
	}

	var res Result
	switch op {
	case OpCreate:
		res.ResetForm = true
		d.toast(ToastSuccess, d.msgs.Created)
	case OpUpdate:
		d.toast(ToastSuccess, d.msgs.Updated)
	case OpDelete:
		d.toast(ToastSuccess, d.msgs.Deleted)
	}
	if d.fetcher != nil {
		res.ReloadErr = d.fetcher.reload(ctx)
	}
	return res, nil
}

func (d *Dispatcher) toast(kind ToastKind, msg string) {
	if d.notify == nil || msg == "" {
		return
	}
	d.notify.Notify(Toast{Kind: kind, Message: msg})
}
