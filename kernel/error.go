package kernel

// Error describes a kernel error. All kernel errors are defined as global
// variables that are pointers to the Error structure. This requirement
// stems from the fact that the Go allocator is not available for long
// stretches of boot, so error values cannot be built with errors.New.
type Error struct {
	// Module where the error occurred.
	Module string

	// Message is the human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
