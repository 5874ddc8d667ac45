// Package checkpoint stores the resume positions of the two crawl stages.
//
// The crawl checkpoint records the last fetched page and whether the listing
// has ended; the batch checkpoint records the last enrichment batch whose
// results were persisted. Both are keyed by repository and written only after
// the data they describe has been flushed.
package checkpoint
