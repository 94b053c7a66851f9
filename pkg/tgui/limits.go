package tgui

import "errors"

const (
	// MaxCallbackDataLen is Telegram's callback_data size limit in bytes.
	MaxCallbackDataLen = 64
	// MaxButtonTextLen keeps navigation labels on one line.
	MaxButtonTextLen = 32
)

var ErrCallbackDataTooLong = errors.New("tgui: callback_data too long")
