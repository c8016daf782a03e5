package rules

import "errors"

var (
	ErrBinding    = errors.New("rules: invalid binding")
	ErrModule     = errors.New("rules: invalid module")
	ErrExpression = errors.New("rules: invalid expression")
	ErrEvaluation = errors.New("rules: evaluation failed")
	ErrNoModule   = errors.New("rules: no module loaded")
	ErrExecuted   = errors.New("rules: environment already executed")
)
