// Package core implements the mailbox and chain registry at the heart
// of the soactor runtime.
//
// This package provides the basic building blocks including Mailbox,
// Chain, Message and Registry components through which agents exchange
// messages.
package core
