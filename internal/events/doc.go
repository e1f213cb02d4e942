// Package events provides the asynchronous dispatcher that forwards
// security and account events (sign-in outcomes, suspected token theft,
// welcome notifications) to a caller-provided sink without blocking the
// request path.
package events
