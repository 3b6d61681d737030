package errors

import "fmt"

// Admission errors are connection-fatal: the socket is never registered.
var (
	ErrMissingCredential = fmt.Errorf("missing credential")
	ErrInvalidCredential = fmt.Errorf("invalid credential")
	ErrExpiredCredential = fmt.Errorf("expired credential")
	ErrUnknownIdentity   = fmt.Errorf("unknown identity")
)

// Per-event errors are isolated to the offending connection.
var (
	ErrInvalidPayload  = fmt.Errorf("invalid payload")
	ErrUnknownEvent    = fmt.Errorf("unknown event")
	ErrEmptyContent    = fmt.Errorf("message content cannot be empty")
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrChatNotFound    = fmt.Errorf("chat not found")
	ErrMessageNotFound = fmt.Errorf("message not found")
	ErrPollNotFound    = fmt.Errorf("poll not found")
	ErrPollClosed      = fmt.Errorf("poll has ended")
	ErrInvalidOption   = fmt.Errorf("invalid option index")
	ErrNotSender       = fmt.Errorf("only the sender can modify this message")
	ErrInvalidPoll     = fmt.Errorf("invalid poll")
	ErrUnsupportedFile = fmt.Errorf("unsupported file type")
)

var (
	ErrOnlyCensoredFiles = fmt.Errorf("censored directory contains directories")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
	ErrUserAlreadyExists = fmt.Errorf("user already exists")
	ErrPersistQueueFull  = fmt.Errorf("persistence queue is full")
	ErrConnectionClosed  = fmt.Errorf("connection closed")
	ErrSendBufferFull    = fmt.Errorf("send buffer full")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
)
