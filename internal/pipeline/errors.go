package pipeline

import "errors"

// ErrAlignmentEmpty indicates the aligner produced zero rows: no movement fix
// had a climate observation within the time tolerance. Fatal, since every
// later stage would run on nothing.
var ErrAlignmentEmpty = errors.New("alignment produced no rows")
