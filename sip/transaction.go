package sip

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/internal/types"
)

// TransactionState represents the lifecycle state of a SIP transaction
// as defined by RFC 3261 section 17 and extended by RFC 6026.
type TransactionState string

const (
	// TransactionStateCalling is the initial state of an INVITE client transaction.
	TransactionStateCalling TransactionState = "calling"
	// TransactionStateTrying is the initial state of a non-INVITE transaction.
	TransactionStateTrying TransactionState = "trying"
	// TransactionStateProceeding indicates that a provisional response was received or sent.
	TransactionStateProceeding TransactionState = "proceeding"
	// TransactionStateCompleted indicates that a final non-2xx response was received or sent.
	TransactionStateCompleted TransactionState = "completed"
	// TransactionStateAccepted indicates that a 2xx response was received or sent
	// by an INVITE transaction (RFC 6026).
	TransactionStateAccepted TransactionState = "accepted"
	// TransactionStateConfirmed indicates that an INVITE server transaction received an ACK.
	TransactionStateConfirmed TransactionState = "confirmed"
	// TransactionStateTerminated is the final state of any transaction.
	TransactionStateTerminated TransactionState = "terminated"
)

func (s TransactionState) String() string { return string(s) }

// TransactionType distinguishes the four transaction machines of RFC 3261.
type TransactionType string

const (
	TransactionTypeClientInvite    TransactionType = "client_invite"
	TransactionTypeClientNonInvite TransactionType = "client_non_invite"
	TransactionTypeServerInvite    TransactionType = "server_invite"
	TransactionTypeServerNonInvite TransactionType = "server_non_invite"
)

func (t TransactionType) String() string { return string(t) }

// Transaction is the common interface of all SIP transactions.
type Transaction interface {
	slog.LogValuer
	// Type returns the transaction type.
	Type() TransactionType
	// Context returns the transaction context.
	// The context carries the transaction itself and is canceled when
	// the transaction terminates.
	Context() context.Context
	// Terminate forcibly moves the transaction to the terminated state.
	Terminate(ctx context.Context) error
	// OnStateChanged registers a callback invoked on each state transition.
	OnStateChanged(fn TransactionStateHandler) (cancel func())
	// OnError registers a callback invoked when the transaction fails
	// with a timeout or transport error.
	OnError(fn ErrorHandler) (cancel func())
}

// TransactionFromContext returns a transaction bound to the context by
// one of the transaction constructors.
func TransactionFromContext(ctx context.Context) (Transaction, bool) {
	if tx, ok := ClientTransactionFromContext(ctx); ok {
		return tx, true
	}
	if tx, ok := ServerTransactionFromContext(ctx); ok {
		return tx, true
	}
	return nil, false
}

// Common transaction triggers.
const (
	txEvtTerminate = "terminate"
	txEvtTranspErr = "transport_err"
)

// transactImpl is the most derived transaction value embedding [baseTransact].
// Actions and callbacks always expose the impl, not the embedded base.
type transactImpl interface {
	Transaction
}

type baseTransact struct {
	fsm  *stateless.StateMachine
	ctx  context.Context
	canc context.CancelFunc
	typ  TransactionType
	impl transactImpl
	log  *slog.Logger

	onStateChanged types.CallbackManager[TransactionStateHandler]
	onErr          types.CallbackManager[ErrorHandler]
}

func newBaseTransact(ctx context.Context, typ TransactionType, impl transactImpl, logger *slog.Logger) *baseTransact {
	ctx, canc := context.WithCancel(ctx)
	return &baseTransact{
		ctx:  ctx,
		canc: canc,
		typ:  typ,
		impl: impl,
		log:  logger,
	}
}

// initFSM creates the state machine in the start state and wires the
// transitions common to all transaction types. Derived transactions
// complete the configuration with their own states and triggers.
func (tx *baseTransact) initFSM(start TransactionState) error {
	fsm := stateless.NewStateMachineWithMode(start, stateless.FiringQueued)
	fsm.SetTriggerParameters(txEvtTranspErr, reflect.TypeOf((*error)(nil)).Elem())
	fsm.OnUnhandledTrigger(func(_ context.Context, state stateless.State, trigger stateless.Trigger, _ []string) error {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrActionNotAllowed,
			fmt.Sprintf("%q in state %q", trigger, state)))
	})
	fsm.OnTransitioned(func(ctx context.Context, tr stateless.Transition) {
		from, _ := tr.Source.(TransactionState)
		to, _ := tr.Destination.(TransactionState)
		if from == to {
			return
		}
		tx.onStateChanged.Range(func(fn TransactionStateHandler) {
			fn(ctx, from, to)
		})
	})
	tx.fsm = fsm
	return nil
}

// Type returns the transaction type.
func (tx *baseTransact) Type() TransactionType { return tx.typ }

// Context returns the transaction context.
func (tx *baseTransact) Context() context.Context { return tx.ctx }

// State returns the current transaction state.
func (tx *baseTransact) State() TransactionState {
	st, _ := tx.fsm.MustState().(TransactionState)
	return st
}

// Terminate forcibly moves the transaction to the terminated state.
// Terminating an already terminated transaction is a no-op.
func (tx *baseTransact) Terminate(ctx context.Context) error {
	if tx.State() == TransactionStateTerminated {
		return nil
	}
	return errtrace.Wrap(tx.fsm.FireCtx(ctx, txEvtTerminate))
}

// OnStateChanged registers a callback invoked on each state transition.
func (tx *baseTransact) OnStateChanged(fn TransactionStateHandler) (cancel func()) {
	return tx.onStateChanged.Add(fn)
}

// OnError registers a callback invoked on transaction failure.
func (tx *baseTransact) OnError(fn ErrorHandler) (cancel func()) {
	return tx.onErr.Add(fn)
}

func (tx *baseTransact) dispatchErr(ctx context.Context, err error) {
	tx.onErr.Range(func(fn ErrorHandler) {
		fn(ctx, err)
	})
}

func (tx *baseTransact) actTerminated(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction terminated", slog.Any("transaction", tx.impl))
	tx.canc()
	return nil
}

func (tx *baseTransact) actTimedOut(ctx context.Context, _ ...any) error {
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction timed out", slog.Any("transaction", tx.impl))
	tx.dispatchErr(ctx, errtrace.Wrap(ErrTransactionTimedOut))
	return nil
}

func (tx *baseTransact) actTranspErr(ctx context.Context, args ...any) error {
	err, _ := args[0].(error)
	tx.log.LogAttrs(ctx, slog.LevelDebug, "transaction transport error",
		slog.Any("transaction", tx.impl), slog.Any("error", err))
	tx.dispatchErr(ctx, err)
	return nil
}

func (tx *baseTransact) actNoop(context.Context, ...any) error { return nil }
