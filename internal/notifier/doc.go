// Package notifier delivers derived documents to a chat.
//
// A delivery is one document upload through a transport.Adapter (Telegram in
// production). There is no queue and no retry: Send makes exactly one attempt
// and reports the outcome, leaving retry policy to the caller.
//
// # Templates
//
// The file name and caption are text/template strings rendered against
// TemplateData, so a caption can carry the fingerprint or delivery time:
//
//	notify:
//	  filename: "schedule-{{.Date}}.pdf"
//	  caption: "Schedule updated ({{.Short}})"
package notifier
