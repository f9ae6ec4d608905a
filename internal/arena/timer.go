package arena

import "time"

// Ticker lifecycle for the countdown. All of these run on the session
// goroutine; the clear-before-set discipline in startTicker guarantees at
// most one live ticker per session.

func (s *Session) startTicker() {
	s.stopTicker()
	s.ticker = s.clock.NewTicker(time.Second)
}

func (s *Session) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

// tickChan returns the live ticker channel, or nil so the run loop's
// select arm stays dormant while no countdown is active.
func (s *Session) tickChan() <-chan time.Time {
	if s.ticker == nil {
		return nil
	}
	return s.ticker.Chan()
}

// pauseCountdown freezes the clock at its current remaining value.
func (s *Session) pauseCountdown() {
	s.state.TimerRunning = false
	s.stopTicker()
}

// resumeCountdown restarts the clock from the paused value. A question
// whose time already ran out stays expired.
func (s *Session) resumeCountdown() {
	if s.state.TimerRemaining <= 0 {
		return
	}
	s.state.TimerRunning = true
	s.startTicker()
}
