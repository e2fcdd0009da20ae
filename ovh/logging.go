package ovh

import "github.com/cmstar/go-logx"

type nopLogger struct{}

var _ logx.Logger = nopLogger{}

func (nopLogger) Log(logx.Level, string, ...interface{}) error { return nil }

func (nopLogger) LogFn(logx.Level, func() (string, []interface{})) error { return nil }
