package rcontext

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/discord-chat-archiver/common/config"
)

func Initial() RequestContext {
	return RequestContext{
		Context: context.Background(),
		Log:     logrus.WithFields(logrus.Fields{"nocontext": true}),
		Config:  *config.Get(),
	}.populate()
}

type RequestContext struct {
	context.Context

	// These are also stored on the context object itself
	Log    *logrus.Entry
	Config config.ArchiverConfig
}

func (c RequestContext) populate() RequestContext {
	c.Context = context.WithValue(c.Context, "ca.logger", c.Log)
	c.Context = context.WithValue(c.Context, "ca.config", c.Config)
	return c
}

func (c RequestContext) ReplaceLogger(log *logrus.Entry) RequestContext {
	ctx := context.WithValue(c.Context, "ca.logger", log)
	return RequestContext{
		Context: ctx,
		Log:     log,
		Config:  c.Config,
	}
}

func (c RequestContext) LogWithFields(fields logrus.Fields) RequestContext {
	return c.ReplaceLogger(c.Log.WithFields(fields))
}

// WithContext swaps the underlying context, typically to attach a cancellation
// signal to a job without rebuilding the logger or config snapshot.
func (c RequestContext) WithContext(ctx context.Context) RequestContext {
	return RequestContext{
		Context: ctx,
		Log:     c.Log,
		Config:  c.Config,
	}.populate()
}
