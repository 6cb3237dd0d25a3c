// Package notify delivers change events to a chat webhook.
//
// Webhook posts a Discord-compatible payload: a short text message plus,
// when the event carries an artifact, the artifact as a multipart file
// upload. LogNotifier writes the same message to a writer instead and is
// used for dry runs.
package notify
