package apierr

// Code is a machine-readable error code returned in API responses.
type Code string

// Common errors.
const (
	CodeInvalidRequestBody Code = "INVALID_REQUEST_BODY"
	CodeInvalidID          Code = "INVALID_ID"
	CodeInternalError      Code = "INTERNAL_ERROR"
)

// Run errors.
const (
	CodeRunNotFound     Code = "RUN_NOT_FOUND"
	CodeRunDeleteFailed Code = "RUN_DELETE_FAILED"
)

// File selection errors.
const (
	CodeFileRequired          Code = "FILE_REQUIRED"
	CodeFileNameTaken         Code = "FILE_NAME_TAKEN"
	CodeFileNotFound          Code = "FILE_NOT_FOUND"
	CodeStagingDisabled       Code = "STAGING_DISABLED"
	CodeStagingFailed         Code = "STAGING_FAILED"
	CodeSelectionUpdateFailed Code = "SELECTION_UPDATE_FAILED"
)

// Stage machine errors.
const (
	CodeGateClosed    Code = "STAGE_GATE_CLOSED"
	CodeWrongStage    Code = "WRONG_STAGE"
	CodeBatchInFlight Code = "BATCH_IN_FLIGHT"
	CodeAtFirstStage  Code = "AT_FIRST_STAGE"
	CodeAtLastStage   Code = "AT_LAST_STAGE"
)

// Batch operation errors.
const (
	CodeBatchFailed    Code = "BATCH_FAILED"
	CodeInvalidTargets Code = "INVALID_TARGETS"
)

// Report errors.
const (
	CodeReportFailed        Code = "REPORT_FAILED"
	CodeReportArchiveFailed Code = "REPORT_ARCHIVE_FAILED"
)
