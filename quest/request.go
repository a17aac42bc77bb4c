package quest

import (
	"errors"

	"github.com/Konsultn-Engineering/quest/render"
)

var ErrInvalidRequest = errors.New("quest: request needs exactly one of Text or File")

// Request describes one SQL batch. Exactly one of Text and File is set.
// A relative File is resolved under the quest's SQL directory.
type Request struct {
	Text    string
	File    string
	View    render.View
	NoSplit bool
	Params  []any
}

// SQL builds a request from inline text.
func SQL(text string, params ...any) Request {
	return Request{Text: text, Params: params}
}

// File builds a request that reads its text from path.
func File(path string) Request {
	return Request{File: path}
}

// WithView returns a copy of r rendered against view.
func (r Request) WithView(view render.View) Request {
	r.View = view
	return r
}

// Whole returns a copy of r that is executed as a single statement.
func (r Request) Whole() Request {
	r.NoSplit = true
	return r
}

func (r Request) validate() error {
	if (r.Text == "") == (r.File == "") {
		return ErrInvalidRequest
	}
	return nil
}
