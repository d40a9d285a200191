package sip

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/sipcore/header"
	"github.com/ghettovoice/sipcore/internal/errorutil"
	"github.com/ghettovoice/sipcore/log"
)

// Publication states.
const (
	PublicationStateInitial     = RefreshStateInitial
	PublicationStatePublished   = RefreshStateActive
	PublicationStateTerminating = RefreshStateTerminating
	PublicationStateTerminated  = RefreshStateTerminated
)

// PublisherOptions configure a [Publisher].
type PublisherOptions struct {
	// Expires is the requested publication expiration.
	// Defaults to [DefaultExpires].
	Expires time.Duration
	// RefreshFrequency is the percentage of the granted expiration
	// after which the publication is refreshed.
	// Defaults to [DefaultRefreshFrequency].
	RefreshFrequency uint
	// Headers are appended to each PUBLISH request.
	Headers Headers
	// SendOptions are passed to the transport.
	SendOptions *SendRequestOptions
	// Log is the publisher logger.
	Log *slog.Logger
}

func (o *PublisherOptions) expires() time.Duration {
	if o == nil {
		return 0
	}
	return o.Expires
}

func (o *PublisherOptions) freq() uint {
	if o == nil {
		return 0
	}
	return o.RefreshFrequency
}

func (o *PublisherOptions) headers() Headers {
	if o == nil {
		return nil
	}
	return o.Headers
}

func (o *PublisherOptions) sendOpts() *SendRequestOptions {
	if o == nil {
		return nil
	}
	return o.SendOptions
}

func (o *PublisherOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// Publisher maintains event state published at an event state
// compositor. The entity tag returned by the server is tracked across
// requests: refreshes carry SIP-If-Match without a body, and a 412
// answer drops the stale tag and re-publishes the full state.
type Publisher struct {
	*refresher

	target   URI
	from     URI
	event    header.Event
	hdrs     Headers
	sendOpts *SendRequestOptions

	mu       sync.Mutex
	etag     header.SIPETag
	lastBody Body
}

// NewPublisher creates a publisher for the given event package at
// target. No request is sent until [Publisher.Publish].
func NewPublisher(
	core *UserAgentCore,
	target, from URI,
	event string,
	opts *PublisherOptions,
) (*Publisher, error) {
	if core == nil || target == nil || from == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil core, target or from"))
	}
	if event == "" {
		return nil, errtrace.Wrap(NewInvalidArgumentError("empty event type"))
	}

	ref, err := newRefresher(core, opts.expires(), opts.freq(), opts.log())
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	return &Publisher{
		refresher: ref,
		target:    target.Clone(),
		from:      from.Clone(),
		event:     header.Event{Type: event},
		hdrs:      opts.headers().Clone(),
		sendOpts:  opts.sendOpts(),
	}, nil
}

// ETag returns the entity tag of the current publication, empty until
// the first PUBLISH is accepted.
func (pub *Publisher) ETag() header.SIPETag {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	return pub.etag
}

// Publish sends the event state to the compositor, replacing the
// previous publication when one exists. The request is asynchronous:
// failures are reported through [Publisher.OnError].
func (pub *Publisher) Publish(ctx context.Context, body Body) error {
	if body.IsZero() {
		return errtrace.Wrap(NewInvalidArgumentError("empty body"))
	}
	if err := pub.begin(); err != nil {
		return errtrace.Wrap(err)
	}

	pub.mu.Lock()
	pub.lastBody = body
	pub.mu.Unlock()

	if err := pub.sendPublish(ctx, pub.expires, &body); err != nil {
		pub.finish()
		return errtrace.Wrap(err)
	}
	return nil
}

// Unpublish removes the publication with an expires=0 PUBLISH and
// terminates the publisher.
func (pub *Publisher) Unpublish(ctx context.Context) error {
	if err := pub.terminating(ctx); err != nil {
		return errtrace.Wrap(err)
	}
	pub.stopRefresh()
	pub.waiting.Store(true)
	if err := pub.sendPublish(ctx, 0, nil); err != nil {
		pub.finish()
		pub.terminate(ctx)
		return errtrace.Wrap(err)
	}
	return nil
}

// sendPublish sends a PUBLISH. A nil body makes a bodiless refresh or
// removal carrying only SIP-If-Match.
func (pub *Publisher) sendPublish(ctx context.Context, expires time.Duration, body *Body) error {
	hdrs := pub.hdrs.Clone()
	if hdrs == nil {
		hdrs = make(Headers)
	}
	hdrs.Set(pub.event.Clone()).Set(&header.Expires{Duration: expires})

	pub.mu.Lock()
	if pub.etag != "" {
		hdrs.Set(header.SIPIfMatch(pub.etag))
	}
	pub.mu.Unlock()

	var content []byte
	if body != nil {
		hdrs.Set(contentTypeHeader(body.ContentType))
		content = body.Content
	}

	ua, err := pub.core.Publish(ctx, pub.target, &RequestOptions{
		From:        pub.from,
		Headers:     hdrs,
		Body:        content,
		SendOptions: pub.sendOpts,
		Delegate: &UACDelegate{
			OnAccept:   func(ctx context.Context, res *InboundResponse) { pub.recvAccept(ctx, res, expires) },
			OnRedirect: pub.recvReject,
			OnReject:   pub.recvReject,
		},
	})
	if err != nil {
		return errtrace.Wrap(err)
	}
	ua.OnError(func(ctx context.Context, err error) {
		pub.finish()
		pub.dispatchErr(ctx, errtrace.Wrap(errorutil.NewWrapperError(ErrRefreshFailed, err)))
		pub.terminate(ctx)
	})
	return nil
}

func (pub *Publisher) recvAccept(ctx context.Context, res *InboundResponse, requested time.Duration) {
	pub.finish()

	if etag, ok := res.Headers().SIPETag(); ok {
		pub.mu.Lock()
		pub.etag = etag
		pub.mu.Unlock()
	}

	if pub.State() == PublicationStateTerminating || requested == 0 {
		pub.terminate(ctx)
		return
	}

	granted := grantedExpiration(res, nil, requested)
	if granted <= 0 {
		pub.terminate(ctx)
		return
	}
	pub.activate(ctx)
	pub.scheduleRefresh(granted, func() {
		if err := pub.sendPublish(pub.ctx, pub.expires, nil); err != nil {
			pub.dispatchErr(pub.ctx, errtrace.Wrap(errorutil.NewWrapperError(ErrRefreshFailed, err)))
			pub.terminate(pub.ctx)
		}
	})
}

func (pub *Publisher) recvReject(ctx context.Context, res *InboundResponse) {
	pub.finish()
	pub.captureRetry(res)

	if pub.State() == PublicationStateTerminating {
		pub.terminate(ctx)
		return
	}

	// A stale entity tag means the compositor lost the publication:
	// drop the tag and publish the full state again.
	if res.Status() == ResponseStatusConditionalRequestFailed {
		pub.mu.Lock()
		pub.etag = ""
		body := pub.lastBody
		pub.mu.Unlock()

		if !body.IsZero() {
			pub.log.LogAttrs(ctx, slog.LevelDebug, "stale entity tag, republishing")
			pub.waiting.Store(true)
			if err := pub.sendPublish(ctx, pub.expires, &body); err == nil {
				return
			}
			pub.finish()
		}
	}

	pub.dispatchErr(ctx, errtrace.Wrap(errorutil.NewWrapperError(ErrRefreshFailed,
		fmt.Sprintf("publication rejected with %d", res.Status()))))
	pub.terminate(ctx)
}
