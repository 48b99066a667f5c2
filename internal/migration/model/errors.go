package model

import "errors"

var (
	// ErrParseFailure means the expression is not of the form "<lhs> <op> <number>".
	ErrParseFailure = errors.New("expression does not match <lhs> <op> <number>")
	// ErrSemanticBreak means the expression calls a function that cannot be generalized per tenant.
	ErrSemanticBreak = errors.New("expression uses a function that cannot be migrated per tenant")
	// ErrRewriteInvalid means a rewritten expression failed reparse validation.
	ErrRewriteInvalid = errors.New("rewritten expression failed validation")
)
