package runtime

import "fmt"

// PanicError wraps a recovered panic from a module handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}
