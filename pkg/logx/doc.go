// Package logx configures docwatch's structured logging.
//
// Logger is a small value type on top of zerolog:
//   - console output is human readable (short timestamp + file:line caller)
//   - the optional file sink writes JSON lines
//   - the optional chat sink mirrors warnings and errors to an operator chat,
//     rate limited and never blocking the caller
package logx
