package ident

import (
	stderrors "errors"
	"iter"

	"pycount/internal/engine/syntax"
)

// Seq returns the occurrences of root as a lazy sequence. A walk failure is
// yielded once as the final pair with a zero Occurrence. Breaking out of the
// loop stops the walk.
func Seq(root syntax.Node) iter.Seq2[Occurrence, error] {
	return func(yield func(Occurrence, error) bool) {
		err := Walk(root, func(o Occurrence) error {
			if !yield(o, nil) {
				return ErrStop
			}
			return nil
		})
		if err != nil && !stderrors.Is(err, ErrStop) {
			yield(Occurrence{}, err)
		}
	}
}

// Collect walks root and returns every occurrence in order.
func Collect(root syntax.Node) ([]Occurrence, error) {
	var out []Occurrence
	err := Walk(root, func(o Occurrence) error {
		out = append(out, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
