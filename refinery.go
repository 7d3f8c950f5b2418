// Package refinery turns scraped web pages into structured, quality-scored
// event records. A bounded extract/validate loop refines each candidate until
// it is acceptable or the iteration budget runs out, and the best candidate
// is then deduplicated and published idempotently to a record store.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, gemini/, trafilatura/).
package refinery
