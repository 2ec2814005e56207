// Package notifications publishes worker job outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the worker can publish unconditionally. Which outcomes are delivered is
// controlled by the notifications section of the config.
package notifications
