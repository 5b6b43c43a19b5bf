package repository

import (
	"fmt"
	"strconv"
	"strings"
)

// AllocationError reports a stored document number whose trailing
// sequence segment cannot be parsed. Falling back to sequence 1 here
// would hand out a number that is already taken, so allocation fails
// hard instead.
type AllocationError struct {
	Code   string
	Reason string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("cannot allocate next document number from %q: %s", e.Code, e.Reason)
}

// NextDocumentCode computes the next document number for a (prefix,
// year) pair. maxExisting is the highest stored number matching
// "<prefix>-<year>-%" (empty when the pair has no documents yet, in
// which case the sequence starts at 1).
//
// The sequence segment is zero-padded to 4 digits and simply widens
// beyond 9999. Uniqueness under concurrent creation is the caller's
// job: the lookup and the insert must run under the per-(prefix, year)
// code lock so two writers cannot read the same max.
func NextDocumentCode(prefix string, year int, maxExisting string) (string, error) {
	seq := 1
	if maxExisting != "" {
		parts := strings.Split(maxExisting, "-")
		if len(parts) < 3 {
			return "", &AllocationError{Code: maxExisting, Reason: "expected <prefix>-<year>-<sequence>"}
		}
		last, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			return "", &AllocationError{Code: maxExisting, Reason: "trailing sequence segment is not numeric"}
		}
		seq = last + 1
	}
	return FormatDocumentCode(prefix, year, seq), nil
}

// FormatDocumentCode renders a document number in the canonical
// "<prefix>-<year>-<sequence>" shape, e.g. "RFQ-2025-0042".
func FormatDocumentCode(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", strings.ToUpper(prefix), year, seq)
}
