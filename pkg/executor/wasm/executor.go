package wasm

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bacalhau-project/callback-relay/pkg/executor"
	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
	"github.com/bacalhau-project/callback-relay/pkg/telemetry"
)

const (
	// wasm memory is allocated in pages of 64KiB
	pageSize = 65536
	// 4GiB, the whole wasm32 address space
	maxMemoryPages = 65536

	DefaultMaxJournalBytes = 1 << 20
	maxStderrBytes         = 64 << 10
)

type Option func(*Executor)

// WithMemoryLimit caps the memory of a guest, rounded up to whole pages.
// Limits above the wasm32 address space are clamped to it.
func WithMemoryLimit(bytes uint64) Option {
	return func(e *Executor) {
		pages := bytes / pageSize
		if bytes%pageSize != 0 {
			pages++
		}
		if pages > maxMemoryPages {
			pages = maxMemoryPages
		}
		e.memoryLimitPages = uint32(pages)
	}
}

// WithMaxJournalBytes caps how much a guest may write to stdout.
func WithMaxJournalBytes(n int) Option {
	return func(e *Executor) {
		e.maxJournalBytes = n
	}
}

// WithAttester enables attested runs.
func WithAttester(a *executor.Attester) Option {
	return func(e *Executor) {
		e.attester = a
	}
}

// Executor runs WASI guests. The input is fed to the guest on stdin and
// whatever the guest writes to stdout becomes the journal.
type Executor struct {
	cache            wazero.CompilationCache
	memoryLimitPages uint32
	maxJournalBytes  int
	attester         *executor.Attester
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		cache:           wazero.NewCompilationCache(),
		maxJournalBytes: DefaultMaxJournalBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close releases the compiled modules kept between runs.
func (e *Executor) Close(ctx context.Context) error {
	return e.cache.Close(ctx)
}

func (e *Executor) Run(ctx context.Context, request *executor.RunCommandRequest) (*executor.RunCommandResult, error) {
	ctx, span := telemetry.NewSpan(ctx, telemetry.GetTracer(), "pkg/executor/wasm.Executor.Run")
	span.SetAttributes(
		attribute.String("image", request.ImageID.String()),
		attribute.Bool("attest", request.Attest),
	)
	defer span.End()

	result, err := e.run(ctx, request)
	return result, telemetry.RecordErrorOnSpan(span)(err)
}

func (e *Executor) run(ctx context.Context, request *executor.RunCommandRequest) (*executor.RunCommandResult, error) {
	logger := log.Ctx(ctx).With().
		Str("execution", request.ExecutionID).
		Str("image", request.ImageID.String()).
		Logger()

	if request.Attest && e.attester == nil {
		return nil, relayerrors.New(relayerrors.InvalidBackendConfig, "attested execution requested but no attestation key is configured")
	}

	config := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithCompilationCache(e.cache)
	if e.memoryLimitPages > 0 {
		config = config.WithMemoryLimitPages(e.memoryLimitPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, config)
	defer func() {
		if err := runtime.Close(ctx); err != nil {
			logger.Debug().Err(err).Msg("failed to close wasm runtime")
		}
	}()

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, relayerrors.Wrap(err, relayerrors.ExecutionFailed, "instantiating wasi")
	}

	compiled, err := runtime.CompileModule(ctx, request.Binary)
	if err != nil {
		return nil, relayerrors.Wrap(err, relayerrors.ExecutionFailed, "compiling image %s", request.ImageID)
	}

	stdout := &limitedBuffer{limit: e.maxJournalBytes}
	stderr := &limitedBuffer{limit: maxStderrBytes, truncate: true}
	moduleConfig := wazero.NewModuleConfig().
		WithName(request.ImageID.String()).
		WithArgs(request.ImageID.String()).
		WithStdin(bytes.NewReader(request.Input)).
		WithStdout(stdout).
		WithStderr(stderr).
		WithSysNanosleep().
		WithSysNanotime().
		WithSysWalltime()

	logger.Debug().Int("input_bytes", len(request.Input)).Msg("running guest")

	// Instantiating runs _start. A guest that calls proc_exit(0) has
	// succeeded even when wazero reports the exit as an error.
	_, err = runtime.InstantiateModule(ctx, compiled, moduleConfig)
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
		err = nil
	}
	if stdout.overflow {
		return nil, relayerrors.New(relayerrors.ExecutionFailed,
			"image %s wrote more than %d journal bytes", request.ImageID, e.maxJournalBytes)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn().Err(err).Str("stderr", stderr.String()).Msg("guest execution failed")
		return nil, relayerrors.Wrap(err, relayerrors.ExecutionFailed, "running image %s", request.ImageID).
			WithDetail("stderr", stderr.String())
	}

	result := &executor.RunCommandResult{
		Journal: stdout.Bytes(),
		Stderr:  stderr.String(),
	}
	if request.Attest {
		result.Attestation, err = e.attester.Attest(request.ImageID, request.Input, result.Journal)
		if err != nil {
			return nil, relayerrors.Wrap(err, relayerrors.ExecutionFailed, "attesting execution")
		}
		logger.Debug().Str("digest", result.Attestation.Digest.Hex()).Msg("attested execution")
	}
	logger.Debug().Int("journal_bytes", len(result.Journal)).Msg("guest execution finished")
	return result, nil
}

// limitedBuffer collects at most limit bytes. Writes past the limit are
// either dropped (truncate) or flagged as an overflow.
type limitedBuffer struct {
	bytes.Buffer
	limit    int
	truncate bool
	overflow bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.Buffer.Len()
	if len(p) <= room {
		return b.Buffer.Write(p)
	}
	if room > 0 {
		_, _ = b.Buffer.Write(p[:room])
	}
	if b.truncate {
		return len(p), nil
	}
	b.overflow = true
	return room, io.ErrShortWrite
}

// Compile-time check that Executor implements the Executor interface.
var _ executor.Executor = (*Executor)(nil)
