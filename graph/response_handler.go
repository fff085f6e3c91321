package graph

import (
	"context"
	"errors"
	"io"
	"syscall"

	"github.com/Trendyol/go-pq-cdc/logger"
	"github.com/ezeql/go-pq-cdc-memgraph/cypher"
)

// ResponseHandlerContext carries the outcome of one flush attempt.
type ResponseHandlerContext struct {
	Err        error
	Statements []cypher.Statement
}

type ResponseHandler interface {
	OnSuccess(ctx *ResponseHandlerContext)
	OnError(ctx *ResponseHandlerContext)
}

type DefaultResponseHandler struct{}

func (drh *DefaultResponseHandler) OnSuccess(_ *ResponseHandlerContext) {}

func (drh *DefaultResponseHandler) OnError(ctx *ResponseHandlerContext) {
	if isTransientError(ctx.Err) {
		logger.Error("statement batch flush", "error", ctx.Err)
		return
	}
	logger.Error("permanent error from graph executor while flushing statements", "error", ctx.Err)
}

// isTransientError reports whether the flush failure looks like a
// connectivity blip the next retry can recover from.
func isTransientError(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, context.DeadlineExceeded)
}
