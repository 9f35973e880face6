// Package component manages the lifecycle of long-lived units in a
// stagekit host: the Component interface (Start/Stop/Health), an
// optional Describable self-summary, and a Registry that starts
// components in registration order and stops them in reverse.
//
// BaseLazyComponent covers the other lifecycle shape: setup deferred to
// first use, with retry after a failed initialization.
package component
