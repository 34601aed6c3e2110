package inference

import "github.com/samcharles93/nmtdecode/internal/search"

// RequestOptions carries caller overrides; nil fields take the engine
// defaults.
type RequestOptions struct {
	Text string

	BeamSize  *int
	NBest     *int
	MaxLength *int
	Normalize *bool
	Alignment *bool
}

func ResolveRequest(opts RequestOptions, defaults search.Config) Request {
	req := Request{
		Text:      opts.Text,
		BeamSize:  12,
		NBest:     1,
		MaxLength: 0,
		Normalize: true,
		Alignment: false,
	}

	if defaults.BeamSize > 0 {
		req.BeamSize = defaults.BeamSize
	}
	if defaults.NBest > 0 {
		req.NBest = defaults.NBest
	}
	if defaults.MaxLength > 0 {
		req.MaxLength = defaults.MaxLength
	}
	req.Normalize = defaults.Normalize
	req.Alignment = defaults.Alignment

	if opts.BeamSize != nil {
		req.BeamSize = *opts.BeamSize
	}
	if opts.NBest != nil {
		req.NBest = *opts.NBest
	}
	if opts.MaxLength != nil {
		req.MaxLength = *opts.MaxLength
	}
	if opts.Normalize != nil {
		req.Normalize = *opts.Normalize
	}
	if opts.Alignment != nil {
		req.Alignment = *opts.Alignment
	}

	return req
}
