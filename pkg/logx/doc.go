// Package logx is the bot's structured logging facade over zerolog.
//
// Console output is short and human readable, the optional file sink is JSON,
// and the optional chat sink mirrors warnings into a platform chat with a
// minimum level and a rate limit.
package logx
