/*
Package server implements msgpack IPC for tag suggestions.

The server reads a stream of msgpack encoded requests from stdin and writes
msgpack encoded responses to stdout. Every request carries an ID that is
echoed back so the editor can match responses to requests.

# IPC

A suggestion request sends the live note plus the line text before the cursor:

	{"id": "req_001", "a": "suggest", "d": "daily/2025-06-01.md", "x": "#project ...", "b": "todo @bil", "l": 20}

The server detects the trigger in "b", ranks the vault's tags and responds with
the trigger span and the ranked tags:

	{"id": "req_001", "s": [{"t": "billing", "r": 1, "b": 2, "n": 4}], "c": 1, "st": 5, "en": 9, "tm": 812}

When "b" is empty the query is taken from "q" and no span is reported.

A newer suggest request supersedes an older one: the older one is cancelled and
never answered. The editor can also drop the in-flight request explicitly:

	{"id": "req_002", "a": "cancel"}

Once the user picks a tag the editor asks for the replacement text:

	{"id": "req_003", "a": "select", "t": "billing"}
	{"id": "req_003", "x": "#billing "}

Known tags can be listed by prefix, most used first:

	{"id": "req_004", "a": "tags", "q": "pro", "l": 10}
	{"id": "req_004", "s": [{"t": "project", "n": 12}], "c": 1}

Failures are reported with an error message and a status code:

	{"id": "req_005", "e": "unknown action: frobnicate", "c": 400}
*/
package server

// Actions understood by the server.
const (
	ActionSuggest = "suggest"
	ActionSelect  = "select"
	ActionTags    = "tags"
	ActionHealth  = "health"
	ActionCancel  = "cancel"
)

// Request - envelope for every action
type Request struct {
	ID       string `msgpack:"id"`
	Action   string `msgpack:"a"`
	Document string `msgpack:"d,omitempty"`
	Text     string `msgpack:"x,omitempty"`
	Before   string `msgpack:"b,omitempty"`
	Query    string `msgpack:"q,omitempty"`
	Tag      string `msgpack:"t,omitempty"`
	Limit    int    `msgpack:"l,omitempty"`
}

// Suggestion - minimal ranked tag
type Suggestion struct {
	Tag       string `msgpack:"t"`
	Rank      uint16 `msgpack:"r"`
	Bucket    int    `msgpack:"b"`
	Documents int    `msgpack:"n"`
}

// SuggestResponse - ranked tags plus the trigger span they replace
type SuggestResponse struct {
	ID          string       `msgpack:"id"`
	Suggestions []Suggestion `msgpack:"s"`
	Count       int          `msgpack:"c"`
	Start       int          `msgpack:"st"`
	End         int          `msgpack:"en"`
	TimeTaken   int64        `msgpack:"tm"`
}

// SelectResponse - text that replaces the trigger span
type SelectResponse struct {
	ID   string `msgpack:"id"`
	Text string `msgpack:"x"`
}

// TagEntry - a known tag and how many notes use it
type TagEntry struct {
	Tag       string `msgpack:"t"`
	Documents int    `msgpack:"n"`
}

// TagsResponse - tag listing
type TagsResponse struct {
	ID    string     `msgpack:"id"`
	Tags  []TagEntry `msgpack:"s"`
	Count int        `msgpack:"c"`
}

// StatusResponse - readiness and health replies
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
