// Package report renders bulk job and refresh results.
//
// Writers exist for plain text (terminal), JSON (tool integration), and
// GitHub-flavored Markdown with a reason pie chart. All implement Writer;
// New picks one from a Format.
package report
