// Package memory keeps chat transcripts between fsagent sessions.
//
// A transcript is a JSON array of {role, text} entries. Tool calls and their
// results are never stored, so a resumed chat sees the earlier answers but
// not the file traffic that produced them.
package memory
