/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package rollback undoes the effects of a bad license upload for one
// compact and jurisdiction over a bounded time window.
//
// The engine is a checkpointed batch job: each invocation discovers the
// affected providers via the upload-date index, processes them in sorted
// order until the time budget runs out, persists a durable results
// artifact, and returns either COMPLETE or IN_PROGRESS with a continuation
// token for the next invocation. Reverting is conservative: any update in
// or after the window that automated rollback cannot prove upload-caused
// and in-window makes the whole provider ineligible, and such providers
// are reported for manual review rather than partially reverted.
package rollback
