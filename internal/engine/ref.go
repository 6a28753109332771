package engine

import (
	"fmt"

	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
)

// Ref is an encoded request of any builder. Requests embed Refs to depend on
// requests of other builders and still encode deterministically. A session
// decodes a Ref back into its builder's request before building it.
type Ref struct {
	ID      string `json:"key"`
	Builder string `json:"builder"`
	Label   string `json:"description,omitempty"`
	Input   []byte `json:"input"`
}

// NewRef encodes req.
func NewRef(req Request) (Ref, error) {
	if ref, ok := req.(Ref); ok {
		return ref, nil
	}
	input, err := req.Encode()
	if err != nil {
		return Ref{}, derrors.InternalError("encode request "+req.Description(), err)
	}
	return Ref{ID: req.Key(), Builder: req.BuilderName(), Label: req.Description(), Input: input}, nil
}

func (r Ref) Key() string             { return r.ID }
func (r Ref) BuilderName() string     { return r.Builder }
func (r Ref) Encode() ([]byte, error) { return r.Input, nil }

func (r Ref) Description() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Builder + ":" + r.ID
}

// decode returns the request a Ref stands for; other requests are returned
// unchanged.
func (e *Engine) decode(req Request) (Request, error) {
	ref, ok := req.(Ref)
	if !ok {
		return req, nil
	}
	b, err := e.builder(ref.Builder)
	if err != nil {
		return nil, derrors.InternalError("resolve reference", err)
	}
	decoded, err := b.Decode(ref.Input)
	if err != nil {
		return nil, derrors.InternalError("decode reference "+ref.Description(), err)
	}
	if decoded.Key() != ref.ID {
		return nil, derrors.InternalError(fmt.Sprintf("reference %s decodes to key %s", ref.ID, decoded.Key()), nil)
	}
	return decoded, nil
}
