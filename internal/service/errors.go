package service

import "errors"

var ErrMissingConversation = errors.New("conversation id is required")
