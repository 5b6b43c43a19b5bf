package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDocumentCodeFirstOfYear(t *testing.T) {
	code, err := NextDocumentCode("RFQ", 2025, "")
	require.NoError(t, err)
	assert.Equal(t, "RFQ-2025-0001", code)
}

func TestNextDocumentCodeIncrements(t *testing.T) {
	code, err := NextDocumentCode("RFQ", 2025, "RFQ-2025-0041")
	require.NoError(t, err)
	assert.Equal(t, "RFQ-2025-0042", code)
}

func TestNextDocumentCodeWidensPastFourDigits(t *testing.T) {
	code, err := NextDocumentCode("WO", 2025, "WO-2025-9999")
	require.NoError(t, err)
	assert.Equal(t, "WO-2025-10000", code)

	code, err = NextDocumentCode("WO", 2025, "WO-2025-10000")
	require.NoError(t, err)
	assert.Equal(t, "WO-2025-10001", code)
}

func TestNextDocumentCodeUppercasesPrefix(t *testing.T) {
	code, err := NextDocumentCode("tr", 2026, "")
	require.NoError(t, err)
	assert.Equal(t, "TR-2026-0001", code)
}

func TestNextDocumentCodeRejectsNonNumericSequence(t *testing.T) {
	_, err := NextDocumentCode("RFQ", 2025, "RFQ-2025-00AB")
	require.Error(t, err)

	var allocErr *AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, "RFQ-2025-00AB", allocErr.Code)
}

func TestNextDocumentCodeRejectsMalformedCode(t *testing.T) {
	_, err := NextDocumentCode("RFQ", 2025, "RFQ2025")
	var allocErr *AllocationError
	require.ErrorAs(t, err, &allocErr)
}

func TestFormatDocumentCode(t *testing.T) {
	assert.Equal(t, "RFQ-2025-0042", FormatDocumentCode("RFQ", 2025, 42))
	assert.Equal(t, "TR-2024-0007", FormatDocumentCode("tr", 2024, 7))
	assert.Equal(t, "WO-2025-12345", FormatDocumentCode("WO", 2025, 12345))
}
