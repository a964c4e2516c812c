// Package core builds the descriptive flexfield input workbook.
//
// It holds the domain logic independent of the HTTP layer, so the web
// handlers and the flexgen CLI share it unchanged.
//
// # Generation
//
// [Generate] runs one job through fixed stages: read the primary workbook,
// read the config snippets, read the DFF reference, [Merge], write the
// result. The first failing stage stops the run and comes back as *[Error]
// carrying its [Stage] and kind.
//
// Merge adds one CONFIG_<name> column per snippet, left-joins the reference
// on DESCRIPTIVE_FLEXFIELD_NAME when the reference has rows, and sets
// XML_PROCESSED when asked to.
//
// # Uploads
//
// [Service.RunUpload] stages the multipart files into a per-request
// [Workspace], extracts the config archive, synthesizes an empty reference
// when none was sent and calls Generate. A [Limiter] caps concurrent runs;
// callers beyond the cap get ErrTooManyGenerations. The workspace is removed
// once the returned [Output] is closed, or immediately on failure.
//
// # Error Handling
//
// Error kinds are mapped to user-facing messages by [MapError], each with a
// support code:
//
//   - VAL001, VAL002: missing files or otherwise rejected upload
//   - IO001, PARSE001, PROC001, OUT001: generation stage failures
//   - UPL002-UPL005: busy, cancelled or timed out
//
// # History
//
// Every run, successful or not, is passed to a [Recorder]. [MemoryRecorder]
// keeps the most recent runs in process; internal/history stores them in
// Postgres.
package core
