package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProtocol = `
STUDY PROTOCOL

6.1 Inclusion Criteria
• Histologically confirmed NSCLC.
• ECOG performance status 0-2.
• Measurable disease per RECIST 1.1.

6.2 Exclusion Criteria
- Prior treatment with EGFR inhibitors.
- Untreated brain metastases.
`

func TestExtract_NumberedSectionHeadings(t *testing.T) {
	extractor := NewExtractorService(quietLogger(), DefaultExtractorConfig())

	result := extractor.Extract(sampleProtocol)

	require.Len(t, result.Inclusion, 3)
	assert.Equal(t, "Histologically confirmed NSCLC", result.Inclusion[0])
	assert.Equal(t, "ECOG performance status 0-2", result.Inclusion[1])
	assert.Equal(t, "Measurable disease per RECIST 1.1", result.Inclusion[2])

	require.Len(t, result.Exclusion, 2)
	assert.Equal(t, "Prior treatment with EGFR inhibitors", result.Exclusion[0])
	assert.Equal(t, "Untreated brain metastases", result.Exclusion[1])
}

func TestExtract_BareKeywordHeadings(t *testing.T) {
	extractor := NewExtractorService(quietLogger(), DefaultExtractorConfig())

	text := "inclusion criteria: adults over 18; signed consent. EXCLUSION CRITERIA: pregnancy."
	result := extractor.Extract(text)

	require.Len(t, result.Inclusion, 2)
	assert.Equal(t, "adults over 18", result.Inclusion[0])
	assert.Equal(t, "signed consent", result.Inclusion[1])

	require.Len(t, result.Exclusion, 1)
	assert.Equal(t, "pregnancy", result.Exclusion[0])
}

func TestExtract_PreservesDecimalTokens(t *testing.T) {
	extractor := NewExtractorService(quietLogger(), DefaultExtractorConfig())

	text := "Inclusion Criteria: albumin at least 3.5 g/dL. Measurable disease per RECIST 1.1."
	result := extractor.Extract(text)

	require.Len(t, result.Inclusion, 2)
	assert.Equal(t, "albumin at least 3.5 g/dL", result.Inclusion[0])
	assert.Equal(t, "Measurable disease per RECIST 1.1", result.Inclusion[1])
}

func TestExtract_NoHeadingsYieldsEmptyResult(t *testing.T) {
	extractor := NewExtractorService(quietLogger(), DefaultExtractorConfig())

	result := extractor.Extract("This document discusses dosing schedules only.")

	assert.Empty(t, result.Inclusion)
	assert.Empty(t, result.Exclusion)
	assert.NotNil(t, result.Inclusion)
	assert.NotNil(t, result.Exclusion)
}

func TestExtract_Idempotent(t *testing.T) {
	extractor := NewExtractorService(quietLogger(), DefaultExtractorConfig())

	first := extractor.Extract(sampleProtocol)
	second := extractor.Extract(sampleProtocol)

	assert.Equal(t, first, second)
}

func TestExtract_EmptyInput(t *testing.T) {
	extractor := NewExtractorService(quietLogger(), DefaultExtractorConfig())

	result := extractor.Extract("")

	assert.Empty(t, result.Inclusion)
	assert.Empty(t, result.Exclusion)
}

func TestExtract_OnlyInclusionSection(t *testing.T) {
	extractor := NewExtractorService(quietLogger(), DefaultExtractorConfig())

	result := extractor.Extract("Inclusion Criteria: age 18 or older.")

	require.Len(t, result.Inclusion, 1)
	assert.Equal(t, "age 18 or older", result.Inclusion[0])
	assert.Empty(t, result.Exclusion)
}

func TestNormalizeText(t *testing.T) {
	raw := "Stage\x00 IIIA\t\t disease\n\n  confirmed\uFFFD"

	assert.Equal(t, "Stage IIIA disease confirmed", NormalizeText(raw))
}

func TestNormalizeText_Idempotent(t *testing.T) {
	once := NormalizeText(sampleProtocol)
	assert.Equal(t, once, NormalizeText(once))
}
