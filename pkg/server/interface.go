/*
Package server implements msgpack IPC for title services.

The server reads msgpack requests from stdin and writes msgpack responses to stdout.
Every request names an action and carries an ID that is echoed back.
Requests are processed synchronously with timing info included in responses.

# IPC

On startup the server writes a single status message:

	{"status": "ready"}

Parse a batch of link texts against the configured site, with Template (10) as the default namespace:

	{"id": "req_001", "action": "parse", "titles": ["foo", ":Main Page#Top"], "ns": 10}

The server answers with the parts of each title:

	{"id": "req_001", "status": "ok", "titles": [{"text": "Template:Foo", "ns": 10, "p": "Foo", "coerced": true}, ...], "c": 2, "t": 85}

Other actions:

	{"id": "v1", "action": "validate", "titles": ["Foo|Bar"]}
	{"id": "s1", "action": "sort", "titles": ["Page 10", "Page 2"], "natural": true}
	{"id": "r1", "action": "run", "job": "talk-pages", "titles": ["Foo"]}
	{"id": "n1", "action": "complete", "prefix": "us"}
	{"id": "h1", "action": "health"}

Failed requests get an error message with an HTTP-like code:

	{"id": "r1", "e": "Unknown job: nope", "c": 404}

A title that cannot be decoded does not fail the batch; its entry carries the error instead.

# Message Types

Request carries the union of all action parameters; unused fields are omitted on the wire.
Response carries titles in ParsedTitle form, which extends the title wire form with the rendered text, parse flags and validity.
ErrorResponse reports request level failures.
*/
package server

// Request is a client message.
type Request struct {
	ID            string            `msgpack:"id"`
	Action        string            `msgpack:"action"`
	Titles        []string          `msgpack:"titles,omitempty"`
	Namespace     int               `msgpack:"ns,omitempty"`
	Natural       bool              `msgpack:"natural,omitempty"`
	Reverse       bool              `msgpack:"reverse,omitempty"`
	AllowRelative bool              `msgpack:"allow_relative,omitempty"`
	Job           string            `msgpack:"job,omitempty"`
	Params        map[string]string `msgpack:"params,omitempty"`
	Prefix        string            `msgpack:"prefix,omitempty"`
}

// ParsedTitle is one title in a response.
type ParsedTitle struct {
	Text            string `msgpack:"text"`
	Interwiki       string `msgpack:"iw,omitempty"`
	Namespace       int    `msgpack:"ns"`
	PageName        string `msgpack:"p"`
	Fragment        string `msgpack:"f,omitempty"`
	HasFragment     bool   `msgpack:"hf,omitempty"`
	Coerced         bool   `msgpack:"coerced,omitempty"`
	ForcedInterwiki bool   `msgpack:"fiw,omitempty"`
	ForcedNamespace bool   `msgpack:"fns,omitempty"`
	Valid           *bool  `msgpack:"valid,omitempty"`
	Problem         string `msgpack:"problem,omitempty"`
	Error           string `msgpack:"e,omitempty"`
}

// Response answers a successful request.
type Response struct {
	ID        string         `msgpack:"id"`
	Status    string         `msgpack:"status"`
	Titles    []ParsedTitle  `msgpack:"titles,omitempty"`
	Names     []string       `msgpack:"names,omitempty"`
	Messages  []string       `msgpack:"messages,omitempty"`
	RunID     string         `msgpack:"run_id,omitempty"`
	Stats     map[string]int `msgpack:"stats,omitempty"`
	Count     int            `msgpack:"c"`
	TimeTaken int64          `msgpack:"t"`
}

// StatusResponse is sent once the server is ready.
type StatusResponse struct {
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information for failed requests
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
