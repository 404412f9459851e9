package view

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/ipview/internal/log"
	"github.com/keithlinneman/ipview/internal/xerrors"
)

// stage names, also used as the failure metric label
const (
	StageHeader   = "header"
	StagePage     = "page"
	StageFooter   = "footer"
	StageAssemble = "assemble"
)

const tracerName = "github.com/keithlinneman/ipview/internal/view"

type PipelineOptions struct {
	Logger log.Logger

	// Before and After may be nil; the missing slot then fails the request
	// at assembly.
	Before   HookFunc
	Page     PageFunc
	After    HookFunc
	Assemble AssembleFunc

	// OnRendered is called after a document is written.
	OnRendered func()
	// OnFailure is called with the failing stage name.
	OnFailure func(stage string)

	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

func (o *PipelineOptions) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}
}

func (o *PipelineOptions) validate() error {
	if o.Page == nil {
		return xerrors.New("view: pipeline page handler is required")
	}
	if o.Assemble == nil {
		return xerrors.New("view: pipeline assembler is required")
	}
	return nil
}

type stage struct {
	name string
	run  func(r *http.Request, frags *Fragments) error
}

// Pipeline serves one page by running its stages in order. It holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	opts   PipelineOptions
	stages []stage
}

func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{opts: opts}
	if opts.Before != nil {
		p.stages = append(p.stages, stage{StageHeader, opts.Before})
	}
	p.stages = append(p.stages, stage{StagePage, opts.Page})
	if opts.After != nil {
		p.stages = append(p.stages, stage{StageFooter, opts.After})
	}
	return p, nil
}

// Stages returns the stage names in execution order, assembly last.
func (p *Pipeline) Stages() []string {
	out := make([]string, 0, len(p.stages)+1)
	for _, s := range p.stages {
		out = append(out, s.name)
	}
	return append(out, StageAssemble)
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	frags := &Fragments{}
	r = r.WithContext(WithFragments(r.Context(), frags))

	for _, s := range p.stages {
		if err := p.runStage(r, s, frags); err != nil {
			p.fail(w, r, s.name, err)
			return
		}
	}

	var doc []byte
	err := p.traced(r.Context(), StageAssemble, func(context.Context) error {
		var err error
		doc, err = p.opts.Assemble(frags)
		return err
	})
	if err != nil {
		p.fail(w, r, StageAssemble, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		log.FromContextOr(r.Context(), p.opts.Logger).Debug(r.Context(), "view write failed", "err", err)
		return
	}
	if p.opts.OnRendered != nil {
		p.opts.OnRendered()
	}
}

func (p *Pipeline) runStage(r *http.Request, s stage, frags *Fragments) error {
	return p.traced(r.Context(), s.name, func(ctx context.Context) error {
		return s.run(r.WithContext(ctx), frags)
	})
}

func (p *Pipeline) traced(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.opts.Tracer.Start(ctx, "view."+name,
		trace.WithAttributes(attribute.String("view.stage", name)))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		return err
	}
	return nil
}

// fail writes a bare 500. Nothing has been written before this point, so
// the client never sees a partial document.
func (p *Pipeline) fail(w http.ResponseWriter, r *http.Request, name string, err error) {
	L := log.FromContextOr(r.Context(), p.opts.Logger)
	L.Error(r.Context(), xerrors.EnsureTrace(err), "view pipeline failed", "view.stage", name)
	if p.opts.OnFailure != nil {
		p.opts.OnFailure(name)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(http.StatusText(http.StatusInternalServerError) + "\n"))
}

// New wires the standard page: header, Home, footer and the layout.
func New(t *Template, opts PipelineOptions) (*Pipeline, error) {
	opts.Before = t.Before
	opts.Page = Home(t)
	opts.After = t.After
	opts.Assemble = t.Assembler().Assemble
	return NewPipeline(opts)
}
