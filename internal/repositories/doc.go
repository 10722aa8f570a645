// Package repositories implements SQL persistence for all domain entities.
//
// Queries are written once with "?" placeholders and run through [shared.DB], which rebinds them for
// postgres. Reads of courses and their children are always scoped to the owning user.
//
// Key Implementations:
//   - [UserRepository] : User accounts with email-based find-or-create
//   - [CourseRepository] : Course trees (course, sections, videos) created in one transaction
//   - [ProgressRepository] : Per-video completion upserted by (user, video)
//   - [CheckInRepository] : Daily check-ins with an atomic find-or-create over the (user, course, date) key
package repositories
