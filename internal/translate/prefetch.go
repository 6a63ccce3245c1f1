package translate

import (
	"context"

	"github.com/GriffinCanCode/autotranslator/internal/resilience"
	"github.com/GriffinCanCode/autotranslator/internal/trace"
)

// DefaultPrefetch lists the sources whose models are fetched at startup.
var DefaultPrefetch = []string{"es", "fr", "de", "zh", "ja", "ko", "hi", "ar"}

// Prefetch downloads models for each source->target pair with backoff.
// Failures are logged and skipped; the model then downloads on first use.
// Returns the number of models that are ready.
func Prefetch(ctx context.Context, d ModelDownloader, sources []string, target string, cfg resilience.RetryConfig) int {
	ctx, span := trace.StartSpan(ctx, "model_prefetch")
	defer span.EndAndLog(ctx)
	log := trace.Logger(ctx)

	ready := 0
	for _, src := range sources {
		err := resilience.Retry(ctx, cfg, func() error {
			return d.DownloadModel(ctx, src, target)
		})
		if err != nil {
			log.Warn("model prefetch failed", "pair", Key(src, target), "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		ready++
	}

	span.SetAttr("ready", ready)
	span.SetAttr("requested", len(sources))
	log.Info("model prefetch finished", "ready", ready, "requested", len(sources))
	return ready
}
