package driven

import "context"

// AmbiguityResolver decides among several remote collections sharing the
// space's name. This is a deliberate escape hatch for duplicated remote
// state: the collection resolver never picks a candidate on its own.
//
// Interactive adapters prompt the operator; non-interactive embeddings must
// fail closed by returning domain.ErrAbstained.
type AmbiguityResolver interface {
	// Choose returns the index of the selected candidate, or
	// domain.ErrAbstained when no choice is made.
	Choose(ctx context.Context, spaceName string, candidates []Collection) (int, error)
}
