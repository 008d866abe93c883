// Package linkdex provides a local, CLI-based catalog of links published as
// a spreadsheet export. It fetches the exported document, rebuilds the table
// rows from text and hyperlink geometry, caches the resulting catalog and
// serves typo-tolerant search over entry titles.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, badger/, pdf/).
package linkdex
