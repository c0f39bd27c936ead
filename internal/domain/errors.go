package domain

// Error is a domain failure. It either rejects caller input or names a
// resource that does not exist, and says which through Invalid and NotFound.
type Error struct {
	msg      string
	notFound bool
}

func (e *Error) Error() string { return e.msg }

// Invalid reports whether the error rejects caller input
func (e *Error) Invalid() bool { return !e.notFound }

// NotFound reports whether the error names a missing resource
func (e *Error) NotFound() bool { return e.notFound }

func invalid(msg string) error  { return &Error{msg: msg} }
func notFound(msg string) error { return &Error{msg: msg, notFound: true} }

// Errors
var (
	ErrInvalidOrderItem     = invalid("invalid order item")
	ErrEmptyOrder           = invalid("invalid order: at least one item is required")
	ErrInvalidWorkload      = invalid("invalid workload")
	ErrInvalidCapacity      = invalid("invalid resource capacity")
	ErrInvalidPriority      = invalid("invalid priority")
	ErrInvalidResourceClass = invalid("invalid resource class")
	ErrInvalidOrderStatus   = invalid("invalid order status")
	ErrWarehouseNotFound    = notFound("warehouse not found")
	ErrScenarioNotFound     = notFound("scenario not found")
)
