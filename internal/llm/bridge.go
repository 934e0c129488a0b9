package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"altenheim-avatar/internal/domain"
	"altenheim-avatar/internal/metrics"
	"altenheim-avatar/internal/prompt"
)

// Bridge limits and user-facing messages.
const (
	DefaultStreamTimeout   = 35 * time.Second
	DefaultHistoryLimit    = 20
	DefaultMaxMessageChars = 2000

	TimeoutMessage = "The reply took too long. Please try again."
	FailureMessage = "Something went wrong. Please try again."
)

// StreamRequest is one turn to send to the model.
type StreamRequest struct {
	Message  string
	Mode     domain.ChatMode
	History  []domain.HistoryEntry
	Resident *prompt.ResidentProfile
}

// Callbacks receive the stream. Exactly one of OnDone and OnError is called,
// and OnText is never called after it.
type Callbacks struct {
	OnText  func(text string)
	OnDone  func(reply string, tokensUsed int)
	OnError func(message string)
}

// BridgeOptions tune the bridge; zero values take the defaults.
type BridgeOptions struct {
	Timeout         time.Duration
	HistoryLimit    int
	MaxMessageChars int
}

// Bridge relays one turn to a Streamer under a time ceiling. It does no storage.
type Bridge struct {
	streamer Streamer
	profiles Profiles
	opts     BridgeOptions
	logger   *zap.Logger
}

func NewBridge(streamer Streamer, profiles Profiles, opts BridgeOptions, logger *zap.Logger) *Bridge {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultStreamTimeout
	}
	if opts.HistoryLimit <= 0 || opts.HistoryLimit > DefaultHistoryLimit {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = DefaultMaxMessageChars
	}
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &Bridge{streamer: streamer, profiles: profiles, opts: opts, logger: logger}
}

// Stream sends req and blocks until the terminal callback has run.
func (b *Bridge) Stream(ctx context.Context, req StreamRequest, cb Callbacks) {
	start := time.Now()
	mode := string(req.Mode)

	profile, ok := b.profiles[req.Mode]
	if !ok {
		profile = b.profiles[domain.ModeStaff]
	}
	preq := ProviderRequest{
		Profile:  profile,
		System:   prompt.Build(req.Mode, req.Resident),
		Messages: b.window(req.History, req.Message),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		finished bool
		reply    strings.Builder
	)
	onText := func(text string) {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		reply.WriteString(text)
		if cb.OnText != nil {
			cb.OnText(text)
		}
	}
	// finish runs fn as the single terminal callback.
	finish := func(fn func(reply string)) {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		finished = true
		fn(reply.String())
	}

	type outcome struct {
		usage Usage
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				done <- outcome{err: fmt.Errorf("model stream panicked: %v", v)}
			}
		}()
		usage, err := b.streamer.Stream(ctx, preq, onText)
		done <- outcome{usage: usage, err: err}
	}()

	timer := time.NewTimer(b.opts.Timeout)
	defer timer.Stop()

	select {
	case o := <-done:
		if o.err != nil {
			b.logger.Error("model stream failed",
				zap.String("mode", mode),
				zap.String("model", profile.Model),
				zap.Error(o.err),
			)
			metrics.ObserveStream(mode, metrics.OutcomeError, time.Since(start))
			finish(func(string) {
				if cb.OnError != nil {
					cb.OnError(FailureMessage)
				}
			})
			return
		}
		metrics.ObserveStream(mode, metrics.OutcomeDone, time.Since(start))
		finish(func(text string) {
			if cb.OnDone != nil {
				cb.OnDone(text, o.usage.Total())
			}
		})
	case <-timer.C:
		b.logger.Warn("model stream timed out",
			zap.String("mode", mode),
			zap.String("model", profile.Model),
			zap.Duration("timeout", b.opts.Timeout),
		)
		metrics.ObserveStream(mode, metrics.OutcomeTimeout, time.Since(start))
		finish(func(string) {
			if cb.OnError != nil {
				cb.OnError(TimeoutMessage)
			}
		})
		cancel()
	}
}

// window keeps the most recent history entries, truncates each one and appends the new turn.
func (b *Bridge) window(history []domain.HistoryEntry, message string) []domain.HistoryEntry {
	if len(history) > b.opts.HistoryLimit {
		history = history[len(history)-b.opts.HistoryLimit:]
	}
	out := make([]domain.HistoryEntry, 0, len(history)+1)
	for _, h := range history {
		out = append(out, domain.HistoryEntry{Role: h.Role, Content: truncate(h.Content, b.opts.MaxMessageChars)})
	}
	out = append(out, domain.HistoryEntry{
		Role:    domain.MessageRoleUser,
		Content: truncate(strings.TrimSpace(message), b.opts.MaxMessageChars),
	})
	return out
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
