package sip

import "context"

// Handler type aliases.
type (
	ErrorHandler = func(ctx context.Context, err error)

	InboundResponseHandler  = func(ctx context.Context, res *InboundResponse)
	InboundRequestHandler   = func(ctx context.Context, req *InboundRequest)
	OutboundRequestHandler  = func(ctx context.Context, req *OutboundRequest)
	OutboundResponseHandler = func(ctx context.Context, res *OutboundResponse)

	TransactionStateHandler  = func(ctx context.Context, from, to TransactionState)
	ClientTransactionHandler = func(ctx context.Context, tx ClientTransaction)
	ServerTransactionHandler = func(ctx context.Context, tx ServerTransaction)
)

// Handler interfaces.
type (
	TransactionInitHandlerRegistry interface {
		OnNewClientTransaction(fn ClientTransactionHandler) (unbind func())
		OnNewServerTransaction(fn ServerTransactionHandler) (unbind func())
	}
)
