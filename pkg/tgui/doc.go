// Package tgui renders bot output for Telegram's HTML parse mode:
// escaping helpers, the transport Formatter, cards and inline navigation
// keyboards.
package tgui
