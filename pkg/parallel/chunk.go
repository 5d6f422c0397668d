package parallel

// AdaptiveChunkController tracks one worker's exponential moving average
// of per-chunk processing time and grows or shrinks its next chunk size
// to stay within [cfg.TargetMsLow, cfg.TargetMsHigh] (grounded on
// original_source/proto_db/parallel.py's AdaptiveChunkController).
type AdaptiveChunkController struct {
	cfg    Config
	size   int
	emaMs  float64
	hasEMA bool
}

// NewAdaptiveChunkController starts at cfg.InitialChunkSize.
func NewAdaptiveChunkController(cfg Config) *AdaptiveChunkController {
	return &AdaptiveChunkController{cfg: cfg, size: cfg.InitialChunkSize}
}

// NextSize returns the chunk size to request next, clamped to
// [MinChunkSize, MaxChunkSize].
func (c *AdaptiveChunkController) NextSize() int {
	return clamp(c.size, c.cfg.MinChunkSize, c.cfg.MaxChunkSize)
}

// OnChunkTiming folds elapsedMs into the EMA and adjusts the next chunk
// size: below TargetMsLow grows by 1.5x (chunks were too cheap, batch
// more per task), above TargetMsHigh shrinks by 1.5x (chunks are eating
// into tail latency), otherwise holds steady.
func (c *AdaptiveChunkController) OnChunkTiming(elapsedMs float64) {
	if !c.hasEMA {
		c.emaMs = elapsedMs
		c.hasEMA = true
	} else {
		a := c.cfg.ChunkEMAAlpha
		c.emaMs = a*elapsedMs + (1-a)*c.emaMs
	}

	newSize := c.size
	switch {
	case c.emaMs < c.cfg.TargetMsLow:
		newSize = int(float64(c.size) * 1.5)
	case c.emaMs > c.cfg.TargetMsHigh:
		newSize = int(float64(c.size) / 1.5)
		if newSize < 1 {
			newSize = 1
		}
	}
	c.size = clamp(newSize, c.cfg.MinChunkSize, c.cfg.MaxChunkSize)
}
