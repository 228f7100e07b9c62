// builder.go assembles notices from errors.

package brake

import (
	"context"
	"log/slog"
)

// Version is the version of this notifier reported in every notice.
const Version = "0.3.0"

// DefaultNotifier identifies this library in notices.
var DefaultNotifier = Notifier{
	Name:    "ai-airbrake-notifier",
	Version: Version,
	URL:     "https://github.com/strongdm/ai-airbrake-notifier",
}

// Hooks supply request context for a notice. Every field is optional.
// A nil URL hook reports the URL attached with WithURL, or else the catching
// file. Nil var hooks report only the vars attached with WithVars.
// Var hook output is filtered through BuildVars.
type Hooks struct {
	URL     func(ctx context.Context, info *ExceptionInfo) string
	Params  func(ctx context.Context, info *ExceptionInfo) []Var
	CgiData func(ctx context.Context, info *ExceptionInfo) []Var
	Session func(ctx context.Context, info *ExceptionInfo) []Var
}

// Merge returns h with every non-nil hook of other taking precedence.
func (h Hooks) Merge(other Hooks) Hooks {
	if other.URL != nil {
		h.URL = other.URL
	}
	if other.Params != nil {
		h.Params = other.Params
	}
	if other.CgiData != nil {
		h.CgiData = other.CgiData
	}
	if other.Session != nil {
		h.Session = other.Session
	}
	return h
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithHooks merges hooks into the builder's hooks; later options win.
func WithHooks(hooks Hooks) BuilderOption {
	return func(b *Builder) {
		b.hooks = b.hooks.Merge(hooks)
	}
}

// WithNotifier overrides the notifier identity.
func WithNotifier(n Notifier) BuilderOption {
	return func(b *Builder) {
		b.notifier = n
	}
}

// WithStackSource overrides frame extraction.
func WithStackSource(source StackSource) BuilderOption {
	return func(b *Builder) {
		if source != nil {
			b.source = source
		}
	}
}

// WithBuilderLogger sets the logger for informational build output.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithScrubber redacts notices before the builder returns them.
func WithScrubber(cfg ScrubberConfig) BuilderOption {
	return func(b *Builder) {
		b.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing enables scrubbing with production-safe defaults.
func WithDefaultScrubbing() BuilderOption {
	return func(b *Builder) {
		b.scrubber = NewScrubber(DefaultScrubberConfig())
	}
}

// Builder creates notices. It is safe for concurrent use once constructed.
type Builder struct {
	cfg      Config
	notifier Notifier
	hooks    Hooks
	source   StackSource
	scrubber *Scrubber
	logger   *slog.Logger
}

// NewBuilder creates a Builder for cfg.
func NewBuilder(cfg Config, opts ...BuilderOption) *Builder {
	b := &Builder{
		cfg:      cfg.withDefaults(),
		notifier: DefaultNotifier,
		source:   RuntimeStackSource{},
		logger:   discardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Notice builds the notice for err. A nil err fails with ErrInvalidArgument.
func (b *Builder) Notice(ctx context.Context, err error) (*Notice, error) {
	info, infoErr := NewExceptionInfo(err, b.source)
	if infoErr != nil {
		return nil, infoErr
	}
	b.logger.Info("building notice", "class", info.ClassName, "catching_method", info.CatchingMethod.String())

	env := b.serverEnvironment()
	notice := &Notice{
		Version:           NoticeVersion,
		APIKey:            b.cfg.APIKey,
		Notifier:          b.notifier,
		Error:             b.noticeError(info),
		Request:           b.request(ctx, info),
		ServerEnvironment: env,
	}

	if b.scrubber != nil {
		b.scrubber.ScrubNotice(notice)
	}
	return notice, nil
}

// serverEnvironment snapshots the configuration.
func (b *Builder) serverEnvironment() ServerEnvironment {
	return ServerEnvironment{
		ProjectRoot:     b.cfg.ProjectRoot,
		EnvironmentName: b.cfg.EnvironmentName,
		AppVersion:      b.cfg.AppVersion,
	}
}

func (b *Builder) noticeError(info *ExceptionInfo) NoticeError {
	backtrace := make([]TraceLine, len(info.TraceLines))
	copy(backtrace, info.TraceLines)
	return NoticeError{
		Class:          info.ClassName,
		Message:        info.Message,
		CatchingMethod: info.CatchingMethod.String(),
		Backtrace:      backtrace,
	}
}

func (b *Builder) request(ctx context.Context, info *ExceptionInfo) *Request {
	url := info.CatchingFile
	if ctxURL, ok := URLFromContext(ctx); ok {
		url = ctxURL
	}
	if b.hooks.URL != nil {
		url = b.hooks.URL(ctx, info)
	}
	return &Request{
		URL:       url,
		Component: info.CatchingFile,
		Action:    info.CatchingMethod.Name,
		Params:    b.vars(ctx, info, GroupParams, b.hooks.Params),
		Session:   b.vars(ctx, info, GroupSession, b.hooks.Session),
		CgiData:   b.vars(ctx, info, GroupCgiData, b.hooks.CgiData),
	}
}

func (b *Builder) vars(ctx context.Context, info *ExceptionInfo, group VarGroup, hook func(context.Context, *ExceptionInfo) []Var) []Var {
	var vars []Var
	if hook != nil {
		vars = append(vars, hook(ctx, info)...)
	}
	vars = append(vars, VarsFromContext(ctx, group)...)
	if len(vars) == 0 {
		b.logger.Debug("no vars to build", "group", string(group))
	}
	return BuildVars(vars)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
