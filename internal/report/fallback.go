package report

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/govpulse/internal/aggregate"
)

// Fallback tries a primary generator and falls back to the deterministic
// templates when it is absent or fails. It always produces a narrative.
type Fallback struct {
	primary   Generator
	fallback  *Deterministic
	OnFailure func(generator string, err error)
}

// NewFallback wraps primary, which may be nil.
func NewFallback(primary Generator) *Fallback {
	return &Fallback{primary: primary, fallback: NewDeterministic()}
}

// Name implements Generator.
func (f *Fallback) Name() string {
	if f.primary == nil {
		return f.fallback.Name()
	}
	return f.primary.Name() + "+" + f.fallback.Name()
}

// Generate implements Generator. The error is always nil.
func (f *Fallback) Generate(ctx context.Context, agg aggregate.Result, rc Context) (*Narrative, error) {
	n, _ := f.Compose(ctx, agg, rc)
	return n, nil
}

// Compose returns the narrative and the name of the generator that produced it.
// An empty aggregation always takes the template path.
func (f *Fallback) Compose(ctx context.Context, agg aggregate.Result, rc Context) (*Narrative, string) {
	if f.primary != nil && agg.Total > 0 {
		n, err := f.primary.Generate(ctx, agg, rc)
		if err == nil && n != nil {
			return n, f.primary.Name()
		}
		logrus.WithError(err).WithField("generator", f.primary.Name()).
			Warn("Report generator failed, using templates")
		if f.OnFailure != nil {
			f.OnFailure(f.primary.Name(), err)
		}
	}
	return Assemble(agg, rc), f.fallback.Name()
}
