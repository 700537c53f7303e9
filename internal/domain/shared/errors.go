package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Tip-engine specific errors
var (
	// ErrDuplicateSource signals that an entry with the same source identity was
	// already posted. Callers treat it as an idempotent success, not a failure.
	ErrDuplicateSource = NewDomainError("DUPLICATE_SOURCE", "An entry for this source reference already exists")
	// ErrInsufficientBalance signals a write that would drive a worker balance
	// negative without the location-level override.
	ErrInsufficientBalance = NewDomainError("INSUFFICIENT_BALANCE", "Insufficient balance available")
	// ErrLedgerCorruption signals a balance-cache/entry-history mismatch. Writes
	// for the affected worker are halted until manually reconciled.
	ErrLedgerCorruption = NewDomainError("LEDGER_CORRUPTION", "Ledger entries and balance cache disagree")
	// ErrSegmentNotFound signals that no timeline segment covers a timestamp.
	ErrSegmentNotFound = NewDomainError("SEGMENT_NOT_FOUND", "No segment covers the requested timestamp")
	// ErrInvalidSplit signals split percentages that do not sum to 100 within tolerance.
	ErrInvalidSplit = NewDomainError("INVALID_SPLIT", "Split percentages must sum to 100")
	// ErrAlreadyInGroup signals a worker who already holds an active group membership.
	ErrAlreadyInGroup = NewDomainError("ALREADY_IN_GROUP", "Worker already belongs to an active tip group")
)
