package domain

import "errors"

var (
	ErrInvalidLineItem = errors.New("invalid_line_item")
)
