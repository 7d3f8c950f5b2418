package mock

import "github.com/fwojciec/refinery"

var _ refinery.Converter = (*Converter)(nil)

// Converter is a mock implementation of refinery.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
