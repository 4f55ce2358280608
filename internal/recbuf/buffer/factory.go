package buffer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/julianstephens/go-utils/generic"

	"github.com/julianstephens/recbuf/internal/logger"
	"github.com/julianstephens/recbuf/internal/recbuf"
	"github.com/julianstephens/recbuf/internal/recbuf/worker"
)

var errNilEndpoint = errors.New("buffer: spawner returned no worker")

// New creates the buffer for a recording session. With compression requested
// it tries to start a worker through spawn; a nil spawn means the host has no
// worker runtime. Any failure to start the worker falls back to a Simple
// buffer and is only reported to lg.
func New(opts recbuf.BufferOptions, spawn worker.Spawner, lg logger.Logger) Buffer {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}

	if opts.UseCompression {
		if spawn == nil {
			lg.Info("no worker runtime available", "session", opts.SessionID)
		} else {
			ep, err := trySpawn(spawn)
			if err == nil {
				lg.Debug("using compression worker", "session", opts.SessionID,
					"codec", generic.If(opts.Codec == "", recbuf.DefaultCodec, opts.Codec))
				return NewWorker(ep, opts, lg)
			}
			lg.Error("unable to create compression worker", err, "session", opts.SessionID)
			lg.Info("falling back to simple event buffer", "session", opts.SessionID)
		}
	}

	lg.Debug("using simple event buffer", "session", opts.SessionID)
	return NewSimple(opts.SessionID, lg)
}

// trySpawn runs spawn, converting a panic or a nil endpoint into an error.
func trySpawn(spawn worker.Spawner) (ep worker.Endpoint, err error) {
	defer func() {
		if r := recover(); r != nil {
			ep = nil
			err = fmt.Errorf("%w: panic: %v", ErrWorkerUnavailable, r)
		}
	}()

	ep, err = spawn()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkerUnavailable, err)
	}
	if ep == nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkerUnavailable, errNilEndpoint)
	}
	return ep, nil
}
