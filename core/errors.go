package core

import "errors"

// Mailbox creation errors
var (
	ErrEmptyName       = errors.New("mailbox namespace and name must be non-empty")
	ErrNilOwner        = errors.New("direct mailbox requires an owner agent")
	ErrNilCreator      = errors.New("custom mailbox creator is nil")
	ErrNilCustomResult = errors.New("custom mailbox creator returned nil mailbox")
)

// Delivery and subscription errors
var (
	ErrNotOwner                = errors.New("mailbox is owned by another agent")
	ErrMailboxClosed           = errors.New("mailbox is closed")
	ErrSubscriptionUnsupported = errors.New("mailbox does not accept subscribers")
	ErrAgentQueueFull          = errors.New("agent demand queue is full")
	ErrAgentStopped            = errors.New("agent is not running")
)

// Chain errors
var (
	ErrInvalidCapacity = errors.New("chain capacity must be positive")
	ErrChainFull       = errors.New("chain is full")
	ErrChainClosed     = errors.New("chain is closed")
)
