package logging

// NewNop returns a Logger that discards everything, for use in tests that
// don't care about log output but need to satisfy a Logger-typed parameter.
func NewNop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

func (nopLogger) Debugw(string, ...interface{}) {}
func (nopLogger) Infow(string, ...interface{})  {}
func (nopLogger) Warnw(string, ...interface{})  {}
func (nopLogger) Errorw(string, ...interface{}) {}

func (l nopLogger) With(...interface{}) Logger { return l }
func (nopLogger) Sync() error                  { return nil }
