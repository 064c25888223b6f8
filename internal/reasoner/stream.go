package reasoner

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"reasoner-api/internal/config"
	"reasoner-api/internal/metrics"
	"reasoner-api/internal/shared"
	"reasoner-api/internal/sse"
)

// StreamCompletion runs the streaming two-phase flow. Client-facing frames
// go through out, which is bounded: a full channel blocks here until the
// writer drains it. The channel is closed on return. Errors after the first
// frame are only reported through the return value; the client stream still
// ends with the [DONE] sentinel unless the client itself went away.
func (s *Service) StreamCompletion(ctx context.Context, reqID string, req *shared.ChatCompletionRequest, mc *config.ModelConfig, out chan<- []byte) error {
	defer close(out)

	sess := &streamSession{
		svc:   s,
		ctx:   ctx,
		reqID: reqID,
		req:   req,
		mc:    mc,
		out:   out,
		template: shared.ChatCompletionChunk{
			Object: shared.ObjectCompletionChunk,
			Model:  req.Model,
		},
		startAt:      time.Now(),
		finishReason: shared.FinishReasonStop,
	}

	err := sess.run()
	if !errors.Is(err, shared.ErrClientGone) {
		_ = sess.pushFrame(sse.DoneFrame)
	}
	return err
}

type streamSession struct {
	svc   *Service
	ctx   context.Context
	reqID string
	req   *shared.ChatCompletionRequest
	mc    *config.ModelConfig
	out   chan<- []byte

	// template carries the id/created stamp of the first upstream chunk so
	// every client chunk shares one identity across the phase seam.
	template shared.ChatCompletionChunk
	started  bool
	ttftSeen bool
	startAt  time.Time

	reasoning       strings.Builder
	reasoningChunks int
	sawValid        bool
	phase1Usage     shared.Usage
	answerUsage     *shared.Usage
	finishReason    string
}

func (sess *streamSession) run() error {
	if err := ValidateRequest(sess.req); err != nil {
		return err
	}

	res, err := sess.svc.client.Send(sess.ctx, sess.mc, sess.reqID,
		BuildReasoningRequest(sess.req, sess.mc), shared.ContentTypeEventStream)
	if err != nil {
		return err
	}
	if err := sess.relay(res.Body, sess.onReasoningEvent); err != nil {
		return err
	}

	outcome := sess.reasoningOutcome()
	sess.svc.log.Debugw("reasoning phase done",
		"request_id", sess.reqID,
		"prompt_tokens", sess.phase1Usage.PromptTokens,
		"reasoning_tokens", outcome.TokensUsed,
		"finish_reason", outcome.FinishReason,
	)

	remaining := RemainingTokens(sess.req.MaxTokens, outcome.TokensUsed)
	switch {
	case ReasoningExhausted(outcome):
		stub := "...\n\n" + shared.ReasoningCutoffStub + "\n"
		outcome.Text += stub
		if err := sess.pushDelta(reasoningDelta(sess.mc.ReasoningFormat, stub)); err != nil {
			return err
		}
		if err := sess.pushFinish(shared.FinishReasonLength); err != nil {
			return err
		}
		metrics.AnswerSkipped.WithLabelValues(sess.req.Model, skipBudgetExhausted).Inc()
	case remaining <= 0:
		if err := sess.pushFinish(shared.FinishReasonLength); err != nil {
			return err
		}
		metrics.AnswerSkipped.WithLabelValues(sess.req.Model, skipNoRemaining).Inc()
	default:
		if delta, ok := closingDelta(sess.mc.ReasoningFormat); ok {
			if err := sess.pushDelta(delta); err != nil {
				return err
			}
		}
		res, err := sess.svc.client.Send(sess.ctx, sess.mc, sess.reqID,
			BuildAnswerRequest(sess.req, sess.mc, outcome, remaining), shared.ContentTypeEventStream)
		if err != nil {
			return err
		}
		if err := sess.relay(res.Body, sess.onAnswerEvent); err != nil {
			return err
		}
	}

	usage := MergeUsage(sess.phase1Usage, sess.answerUsage)
	usageChunk := sess.template
	usageChunk.Choices = []shared.ChunkChoice{}
	usageChunk.Usage = &usage
	if err := sess.pushChunk(&usageChunk); err != nil {
		return err
	}

	sess.svc.recordUsage(sess.req.Model, usage, outcome.TokensUsed)
	return nil
}

// relay drives the reassembler over one upstream response body until the
// handler stops it or input ends. A body that ends without the sentinel is a
// premature end, not a failure: whatever accumulated is kept.
func (sess *streamSession) relay(body io.ReadCloser, handle func(sse.Event) (bool, error)) error {
	defer func() {
		_ = body.Close()
	}()

	re := sse.NewReassembler()
	buf := make([]byte, 4096)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			for _, event := range re.Feed(buf[:n]) {
				stop, err := handle(event)
				if err != nil {
					return err
				}
				if stop {
					return nil
				}
			}
		}
		if rerr == nil {
			continue
		}
		if sess.ctx.Err() != nil {
			// client went away; the upstream read was canceled with it
			return errors.Join(shared.ErrClientGone, sess.ctx.Err())
		}
		if rerr != io.EOF {
			sess.svc.log.Warnw("upstream stream broke mid-read, keeping partial output",
				"request_id", sess.reqID, "error", rerr)
		}
		for _, event := range re.Flush() {
			stop, err := handle(event)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
		sess.svc.log.Warnw(shared.ErrMissingDoneToken.Msg, "request_id", sess.reqID)
		return nil
	}
}

func (sess *streamSession) onReasoningEvent(event sse.Event) (bool, error) {
	if event.Done {
		return true, nil
	}
	if event.Err != nil {
		return sess.skipMalformed(event)
	}

	chunk := event.Chunk
	sess.sawValid = true
	sess.template.ID = chunk.ID
	sess.template.Created = chunk.Created
	if chunk.Usage != nil {
		sess.phase1Usage = *chunk.Usage
	}
	if len(chunk.Choices) == 0 {
		return false, nil
	}
	choice := chunk.Choices[0]
	if choice.FinishReason != nil {
		sess.finishReason = *choice.FinishReason
	}
	if err := sess.ensureStarted(); err != nil {
		return false, err
	}
	if choice.Delta.Content != nil {
		sess.reasoning.WriteString(*choice.Delta.Content)
		sess.reasoningChunks++
		if err := sess.pushDelta(reasoningDelta(sess.mc.ReasoningFormat, *choice.Delta.Content)); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (sess *streamSession) onAnswerEvent(event sse.Event) (bool, error) {
	if event.Done {
		return true, nil
	}
	if event.Err != nil {
		return sess.skipMalformed(event)
	}

	chunk := event.Chunk
	sess.sawValid = true
	if chunk.Usage != nil {
		usage := *chunk.Usage
		sess.answerUsage = &usage
	}
	if len(chunk.Choices) == 0 {
		return false, nil
	}

	outgoing := sess.template
	outgoing.Choices = []shared.ChunkChoice{chunk.Choices[0]}
	return false, sess.pushChunk(&outgoing)
}

// skipMalformed drops an undecodable event once the stream has proven
// itself; a stream that opens malformed is fatal.
func (sess *streamSession) skipMalformed(event sse.Event) (bool, error) {
	if !sess.sawValid {
		return false, errors.Join(shared.ErrParse, event.Err)
	}
	sess.svc.log.Warnw("skipping malformed stream event",
		"request_id", sess.reqID, "payload", string(event.Raw), "error", event.Err)
	metrics.MalformedEvents.WithLabelValues(sess.req.Model).Inc()
	return false, nil
}

func (sess *streamSession) reasoningOutcome() *ReasoningOutcome {
	tokens := sess.phase1Usage.CompletionTokens
	if tokens == 0 {
		// usage reporting is best-effort; fall back to the chunk count
		tokens = sess.reasoningChunks
	}
	return &ReasoningOutcome{
		Text:         sess.reasoning.String(),
		TokensUsed:   tokens,
		FinishReason: sess.finishReason,
	}
}

// ensureStarted opens the client stream with the assistant role priming
// chunk exactly once.
func (sess *streamSession) ensureStarted() error {
	if sess.started {
		return nil
	}
	if err := sess.pushDelta(openingDelta(sess.mc.ReasoningFormat)); err != nil {
		return err
	}
	sess.started = true
	return nil
}

func (sess *streamSession) pushDelta(delta shared.ChunkDelta) error {
	chunk := sess.template
	chunk.Choices = []shared.ChunkChoice{{Index: 0, Delta: delta}}
	return sess.pushChunk(&chunk)
}

func (sess *streamSession) pushFinish(reason string) error {
	if err := sess.ensureStarted(); err != nil {
		return err
	}
	chunk := sess.template
	chunk.Choices = []shared.ChunkChoice{{Index: 0, Delta: shared.ChunkDelta{}, FinishReason: &reason}}
	return sess.pushChunk(&chunk)
}

func (sess *streamSession) pushChunk(chunk *shared.ChatCompletionChunk) error {
	frame, err := sse.FrameChunk(chunk)
	if err != nil {
		return errors.Join(shared.ErrParse, err)
	}
	if err := sess.pushFrame(frame); err != nil {
		return err
	}
	if !sess.ttftSeen {
		sess.ttftSeen = true
		metrics.TimeToFirstToken.WithLabelValues(sess.req.Model).Observe(time.Since(sess.startAt).Seconds())
	}
	return nil
}

// pushFrame delivers one frame to the writer. A canceled context means the
// client is gone: abort immediately so no further upstream tokens are spent
// on an abandoned request.
func (sess *streamSession) pushFrame(frame []byte) error {
	select {
	case sess.out <- frame:
		return nil
	case <-sess.ctx.Done():
		return errors.Join(shared.ErrClientGone, sess.ctx.Err())
	}
}
