// Package overlay hosts confirmable dialogs behind a capability interface,
// so the container never needs to know a dialog's concrete type.
package overlay

import (
	"context"
	"errors"
	"sync"
)

// Result is the outcome of a confirmed dialog.
type Result struct {
	Confirmed bool
	Payload   any
}

// Confirmable is the capability a dialog exposes to the container. Confirm
// blocks until the user settles the dialog or ctx is done.
type Confirmable interface {
	Confirm(ctx context.Context) (Result, error)
}

// ErrDismissed is returned when a dialog is dismissed without confirmation.
var ErrDismissed = errors.New("overlay: dismissed")

// Container stacks confirmable dialogs. Only the interface is stored; the
// caller keeps ownership of the concrete dialog.
type Container struct {
	mu    sync.Mutex
	stack []Confirmable
}

// NewContainer constructs an empty container.
func NewContainer() *Container {
	return &Container{}
}

// Push adds a dialog on top of the stack.
func (c *Container) Push(dialog Confirmable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack = append(c.stack, dialog)
}

// Len reports the number of stacked dialogs.
func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stack)
}

// ConfirmTop pops the topmost dialog and runs its confirmation. An empty
// container returns ErrDismissed.
func (c *Container) ConfirmTop(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if len(c.stack) == 0 {
		c.mu.Unlock()
		return Result{}, ErrDismissed
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.mu.Unlock()
	return top.Confirm(ctx)
}
