package logic

// Countdown is a remaining-frame counter. States keep one per timed phase and
// tick it once per Update, which keeps suspension as plain persisted data.
type Countdown struct {
	remaining FrameSpan
}

// NewCountdown returns a countdown that expires after span ticks.
func NewCountdown(span FrameSpan) Countdown {
	return Countdown{remaining: span}
}

// Tick advances the countdown by one frame. It reports true on the tick the
// counter reaches zero, and on every tick after that. An empty countdown
// reports true on its first tick without underflowing.
func (c *Countdown) Tick() bool {
	if c.remaining == 0 {
		return true
	}
	c.remaining = c.remaining.Decrement()
	return c.remaining == 0
}

// Remaining returns the frames left before expiry.
func (c Countdown) Remaining() FrameSpan { return c.remaining }

// Expired reports whether the counter has reached zero.
func (c Countdown) Expired() bool { return c.remaining == 0 }

// Reset restarts the countdown with a new span.
func (c *Countdown) Reset(span FrameSpan) { c.remaining = span }

// Span exposes the counter for persistence.
func (c *Countdown) Span() *FrameSpan { return &c.remaining }
