// Package treeerrors declares the error taxonomy shared by the batch tree,
// the push tree, the proof verifier and the root registry.
//
// Every sentinel carries a "CODE|Name: description." message. Codes starting
// with F are structural and abort the operation with no partial effect;
// codes starting with L are lookups the caller may recover from. A failed
// verification is never an error, it is a false result.
package treeerrors

import (
	"strings"

	"github.com/pkg/errors"
)

// Structural (fatal) errors
var (
	ErrEmptyTree        = errors.New("F1|EmptyTree: Cannot build a merkle tree from an empty leaf set.")
	ErrCapacityExceeded = errors.New("F2|CapacityExceeded: Insertion would exceed the fixed capacity of the tree.")
	ErrLengthMismatch   = errors.New("F3|LengthMismatch: Proof and leaf batches have different lengths.")
	ErrEncoding         = errors.New("F4|EncodingError: Leaf content could not be encoded.")
	ErrMalformedProof   = errors.New("F5|MalformedProof: Proof entries or index do not describe a valid path.")
	ErrInvalidDepth     = errors.New("F6|InvalidDepth: Tree depth must be between 1 and 32.")
	ErrUnknownHashType  = errors.New("F7|UnknownHashType: Hash function is not supported.")
)

// Lookup (recoverable) errors
var (
	ErrLeafNotFound      = errors.New("L1|LeafNotFound: Leaf is not a member of the tree.")
	ErrRootNotSet        = errors.New("L2|RootNotSet: Root is not registered.")
	ErrRootAlreadyExists = errors.New("L3|RootAlreadyExists: Root is already registered.")
)

var known = []error{
	ErrEmptyTree,
	ErrCapacityExceeded,
	ErrLengthMismatch,
	ErrEncoding,
	ErrMalformedProof,
	ErrInvalidDepth,
	ErrUnknownHashType,
	ErrLeafNotFound,
	ErrRootNotSet,
	ErrRootAlreadyExists,
}

// sentinel returns the declared error wrapped by err, or err itself.
func sentinel(err error) error {
	for _, s := range known {
		if errors.Is(err, s) {
			return s
		}
	}
	return err
}

// IsFatal reports whether err wraps a structural error.
func IsFatal(err error) bool {
	return strings.HasPrefix(GetErrorCode(err), "F")
}

// IsLookup reports whether err wraps a recoverable lookup error.
func IsLookup(err error) bool {
	return strings.HasPrefix(GetErrorCode(err), "L")
}

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := sentinel(err).Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

func GetErrorNames(errs []error) []string {
	errStrs := make([]string, len(errs))
	for i, err := range errs {
		errStrs[i] = GetErrorName(err)
	}
	return errStrs
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := sentinel(err).Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorDesc extracts the error description from the error message.
func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	parts := strings.SplitN(sentinel(err).Error(), ":", 2)
	if len(parts) < 2 {
		return "DESC NOT SET"
	}
	return strings.TrimSpace(parts[1])
}
