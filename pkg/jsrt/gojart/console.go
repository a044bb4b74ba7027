package gojart

import (
	"go.uber.org/zap"
)

// consolePrinter routes the JS console to zap.
// console.log/info map to Info, console.debug to Debug, warn and error to
// their zap levels.
type consolePrinter struct {
	logger *zap.Logger
}

func newConsolePrinter(logger *zap.Logger) *consolePrinter {
	return &consolePrinter{logger: logger.With(zap.String("source", "console"))}
}

func (p *consolePrinter) Log(msg string)   { p.logger.Info(msg) }
func (p *consolePrinter) Info(msg string)  { p.logger.Info(msg) }
func (p *consolePrinter) Debug(msg string) { p.logger.Debug(msg) }
func (p *consolePrinter) Warn(msg string)  { p.logger.Warn(msg) }
func (p *consolePrinter) Error(msg string) { p.logger.Error(msg) }
