// Package models defines domain entities for the Pluto course tracking service.
//
// A [Course] is a YouTube playlist imported for a single owner and split into ordered [Section] values,
// each holding ordered [Video] values. Per-user completion lives in [Progress], keyed by (user, video).
// A [CheckIn] is the user's daily mood and notes for a course; at most one exists per
// (user, course, calendar date).
//
// All persistent entities implement [Model]. JSON tags match the HTTP API's camelCase wire format.
package models
