package command

import "errors"

var (
	ErrNoPendingCommand = errors.New("no pending command")
	ErrCommandNotFound  = errors.New("command not found")
	ErrQueueFull        = errors.New("command queue is full")
)
